package transport

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const responseTimeout = 5 * time.Second

// MQTTConfig holds the broker parameters for an MQTT-attached instrument.
type MQTTConfig struct {
	Broker    string `json:"broker"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	TopicRoot string `json:"topic_root"`
}

// MQTT talks to an instrument bridged over an MQTT broker. Commands are
// published under <root>/command and the instrument publishes its single
// response line under <root>/response.
type MQTT struct {
	client   mqtt.Client
	cfg      MQTTConfig
	respChan chan string
	logger   log.FieldLogger
}

// DialMQTT connects to the broker and subscribes to the response topic.
func DialMQTT(cfg MQTTConfig, logger log.FieldLogger) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.SetClientID("wattcli")
	opts.AddBroker(cfg.Broker)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	m := &MQTT{
		client:   client,
		cfg:      cfg,
		respChan: make(chan string, 1),
		logger:   logger.WithField("component", "mqtt"),
	}

	topic := cfg.TopicRoot + "/response"
	if token := client.Subscribe(topic, 0, m.responseHandler); token.Wait() && token.Error() != nil {
		client.Disconnect(100)
		return nil, fmt.Errorf("failed to subscribe to response topic: %v", token.Error())
	}

	m.logger.Infof("Connected to MQTT broker %s", cfg.Broker)
	return m, nil
}

func (m *MQTT) Send(cmd string) (string, error) {
	if !m.client.IsConnected() {
		return "", fmt.Errorf("MQTT client is not connected")
	}

	m.logger.Debugf("Sending command: %s", cmd)

	topic := m.cfg.TopicRoot + "/command"
	if token := m.client.Publish(topic, 0, false, cmd); token.Wait() && token.Error() != nil {
		return "", fmt.Errorf("failed to publish command: %v", token.Error())
	}

	// Wait for the response
	select {
	case resp := <-m.respChan:
		m.logger.Debugf("Response: %s", resp)
		return resp, nil
	case <-time.After(responseTimeout):
		return "", fmt.Errorf("timeout waiting for response")
	}
}

func (m *MQTT) responseHandler(client mqtt.Client, msg mqtt.Message) {
	select {
	case m.respChan <- string(msg.Payload()):
	case <-time.After(1 * time.Second):
		m.logger.Warn("Timeout while sending response to the channel")
	}
}

func (m *MQTT) Close() error {
	m.client.Unsubscribe(m.cfg.TopicRoot + "/response")
	m.client.Disconnect(100)
	return nil
}
