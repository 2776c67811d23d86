package websocket

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
	msgTypeLabel = "msg_type"
	queueLabel   = "queue"

	queueFeed   = "feed"
	queueClient = "client"
)

var (
	wsConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected clients.",
	})

	wsReceivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_msgs",
		Help: "The number of messages received from WebSocket connections.",
	}, []string{
		msgTypeLabel,
	})

	wsReceiveError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_receive_errors",
		Help: "The errors that occured while receiving a websocket message.",
	}, []string{
		errTypeLabel,
	})

	wsSentMsgs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_sent_msgs",
		Help: "The number of messages sent to WebSocket connections.",
	})

	wsSentBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to WebSocket connections.",
	})

	wsDroppedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_dropped_msgs",
		Help: "The number of messages dropped because a client did not keep up.",
	}, []string{
		queueLabel,
	})
)

func instrumentReceivedMsg(msgType string) {
	wsReceivedMsgs.With(prometheus.Labels{msgTypeLabel: msgType}).Inc()
}

func instrumentReceiveError(err error) {
	wsReceiveError.With(prometheus.Labels{errTypeLabel: errors.Type(err)}).Inc()
}

func instrumentSentMsg(n int) {
	wsSentMsgs.Inc()
	wsSentBytes.Add(float64(n))
}

func instrumentDroppedMsg(queue string) {
	wsDroppedMsgs.With(prometheus.Labels{queueLabel: queue}).Inc()
}
