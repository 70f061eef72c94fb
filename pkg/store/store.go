// Package store persists the instrument connection profile in a local
// bbolt database, so the operator configures the transport once instead of
// repeating flags on every invocation.
package store

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"wattcli/pkg/meter"
	"wattcli/pkg/transport"
)

const (
	bucket     = "wattcli"
	profileKey = "connection_profile"
)

// Transport kinds accepted in a profile.
const (
	TransportTCP  = "tcp"
	TransportMQTT = "mqtt"
	TransportSim  = "sim"
)

// Profile describes how to reach the instrument and which port the remote
// session service listens on by default.
type Profile struct {
	Transport  string               `json:"transport"`
	Addr       string               `json:"addr"`
	MQTT       transport.MQTTConfig `json:"mqtt"`
	ListenPort int                  `json:"listen_port"`
}

var defaultProfile = Profile{
	Transport: TransportTCP,
	Addr:      "localhost:3490",
	MQTT: transport.MQTTConfig{
		Broker:    "tcp://localhost:1883",
		TopicRoot: "wattcli",
	},
	ListenPort: 10024,
}

type Store struct {
	db *bolt.DB
}

// New creates a store instance and sets default values if they are not
// already set.
func New(db *bolt.DB) (*Store, error) {
	st := Store{db: db}

	if err := st.setDefaults(); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) setDefaults() error {
	if _, err := s.GetProfile(); err != nil {
		log.Info("Setting default connection profile")
		return s.SetProfile(defaultProfile)
	}

	return nil
}

// SetProfile validates and saves the connection profile as a json string
// in the database.
func (s *Store) SetProfile(p Profile) error {
	switch p.Transport {
	case TransportTCP, TransportMQTT, TransportSim:
	default:
		return &meter.ConfigError{Field: "transport", Value: p.Transport, Message: "must be tcp, mqtt or sim"}
	}

	if p.ListenPort < 1 || p.ListenPort > 65535 {
		return &meter.ConfigError{Field: "listen-port", Value: p.ListenPort, Message: "must be between 1 and 65535"}
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}

		value, _ := json.Marshal(p)
		return b.Put([]byte(profileKey), value)
	})
}

// GetProfile retrieves the connection profile from the database.
func (s *Store) GetProfile() (Profile, error) {
	var p Profile

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}

		value := b.Get([]byte(profileKey))
		if value == nil {
			return fmt.Errorf("key %s not found", profileKey)
		}

		return json.Unmarshal(value, &p)
	})

	return p, err
}
