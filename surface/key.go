package surface

import (
	"fmt"
)

// NoIndex marks the absence of a time or level index.
const NoIndex = -1

// Key identifies a draped surface: a dataset variable at a time and a
// vertical level.
type Key struct {
	Name  string `json:"name"`
	Time  int    `json:"time"`
	Level int    `json:"level"`
}

// NewKey returns the key of a variable without time or level indices.
func NewKey(name string) Key {
	return Key{
		Name:  name,
		Time:  NoIndex,
		Level: NoIndex,
	}
}

func (k Key) WithTime(i int) Key {
	k.Time = i
	return k
}

func (k Key) WithLevel(i int) Key {
	k.Level = i
	return k
}

func (k Key) String() string {
	return fmt.Sprintf("%s[time=%d,level=%d]", k.Name, k.Time, k.Level)
}
