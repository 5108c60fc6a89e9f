package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/servo2040/pkg/l1/comm/mqtt"
	"github.com/robotalks/servo2040/pkg/l1/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/"
)

func init() {
	if val := os.Getenv("S2_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	broker, err := mqtt.ParseBroker(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := broker.NewQueue(nil)
	if err = q.Connect(); err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/"+mqtt.TopicMeta):
			log.Printf("%s: %s", topic, string(payload))
		case strings.HasSuffix(topic, "/"+mqtt.TopicCmd):
			req, err := msgs.DecodeRequest(payload)
			if err != nil {
				log.Printf("%s: bad request: %v", topic, err)
				return
			}
			log.Printf("%s: %s", topic, req.String())
		case strings.HasSuffix(topic, "/"+mqtt.TopicMsg):
			reply, err := msgs.DecodeReply(payload)
			if err != nil {
				log.Printf("%s: bad reply: %v", topic, err)
				return
			}
			log.Printf("%s: %s", topic, reply.String())
		}
	}))
	<-(chan struct{})(nil)
}
