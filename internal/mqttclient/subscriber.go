// FilePath: internal/mqttclient/subscriber.go
package mqttclient

import (
	"context"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/greeneye-project/greeneye-hub/internal/ingest"
	nuts "github.com/vaudience/go-nuts"
)

// Subscriber feeds the telemetry wildcard topic into the ingestion pipeline.
// Paho delivers messages on a single network goroutine, so handling is
// synchronous and per-topic ordering is preserved.
type Subscriber struct {
	client    mqtt.Client
	dataTopic string
	pipeline  *ingest.Pipeline
}

func NewSubscriber(client mqtt.Client, dataTopic string, pipeline *ingest.Pipeline) *Subscriber {
	return &Subscriber{
		client:    client,
		dataTopic: dataTopic,
		pipeline:  pipeline,
	}
}

// Subscribe attaches the pipeline handler to the data topic.
func (s *Subscriber) Subscribe(ctx context.Context) error {
	handler := func(c mqtt.Client, msg mqtt.Message) {
		if err := s.pipeline.HandleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
			// Bad input never kills the consumer loop.
			nuts.L.Errorf("[MQTT] Failed to process message on %s: %v", msg.Topic(), err)
		}
	}

	token := s.client.Subscribe(s.dataTopic, 1, handler)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	nuts.L.Infof("[MQTT] Subscribed to %s", s.dataTopic)
	return nil
}
