// Package mqtt veröffentlicht Anwesenheitsereignisse an einen MQTT-Broker,
// damit externe Systeme (Anzeigetafeln, Automatisierung) mithören können.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"facetrack-go/config"
	"facetrack-go/internal/core/attendance"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Publisher ist der MQTT-Client für ausgehende Anwesenheitsereignisse
type Publisher struct {
	config config.MQTTConfig
	client mqtt.Client
}

// NewPublisher erstellt einen neuen MQTT-Publisher
func NewPublisher(cfg config.MQTTConfig) *Publisher {
	return &Publisher{config: cfg}
}

// Start verbindet den Client mit dem Broker
func (p *Publisher) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", p.config.Broker, p.config.Port))
	opts.SetClientID(p.config.ClientID)
	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Infof("Connected to MQTT broker %s:%d", p.config.Broker, p.config.Port)
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		log.Warnf("Lost connection to MQTT broker: %v", err)
	})

	p.client = mqtt.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return fmt.Errorf("timeout connecting to MQTT broker %s:%d", p.config.Broker, p.config.Port)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// Stop trennt die Verbindung zum Broker
func (p *Publisher) Stop() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Info("Disconnected from MQTT broker")
	}
}

// PublishAttendance veröffentlicht ein abgeschlossenes Ereignis.
// Fire-and-forget: Fehler werden nur geloggt, der Anwesenheitsübergang ist
// zu diesem Zeitpunkt bereits festgeschrieben.
func (p *Publisher) PublishAttendance(outcome attendance.Outcome) {
	if p.client == nil || !p.client.IsConnected() {
		log.Debug("MQTT client not connected, skipping attendance event")
		return
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		log.Errorf("Failed to marshal attendance event: %v", err)
		return
	}

	topic := fmt.Sprintf("%s/attendance/event", p.config.Topic)
	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Errorf("Failed to publish attendance event to %s: %v", topic, err)
		}
	}()
}
