package services

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const probeDialTimeout = 5 * time.Second

// UpstreamProber checks whether an upstream AMQP URI is reachable.
// Injectable so the inspector stays testable without a live broker.
type UpstreamProber func(uri string) error

// DialUpstream opens and immediately closes an AMQP connection to the
// upstream URI. A handshake failure (unreachable host, bad credentials,
// refused vhost) surfaces as the returned error.
func DialUpstream(uri string) error {
	conn, err := amqp.DialConfig(uri, amqp.Config{
		Dial: amqp.DefaultDial(probeDialTimeout),
	})
	if err != nil {
		return err
	}
	return conn.Close()
}
