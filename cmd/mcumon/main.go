package main

import (
	"flag"
	"log"
	"os"
	"reflect"

	"github.com/robotalks/mcu.go/pkg/link"
	"github.com/robotalks/mcu.go/pkg/link/mqtt"
	"github.com/robotalks/mcu.go/pkg/wire"
)

var (
	mqttURL = "mqtt://localhost:1883/mcu/"
)

func init() {
	if val := os.Getenv("MCU_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		log.Fatalln(err)
	}

	// one parser per topic, frames never interleave within a topic
	parsers := make(map[string]*link.Parser)
	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		parser := parsers[topic]
		if parser == nil {
			parser = &link.Parser{}
			parsers[topic] = parser
		}
		for _, b := range payload {
			pr := parser.Parse(b)
			if pr.Fault != 0 {
				log.Printf("%s: framing fault: %d", topic, pr.Fault)
			}
			if pr.Payload == nil {
				continue
			}
			msg, err := wire.Decode(pr.Payload)
			if err != nil {
				log.Printf("%s: bad message: %v", topic, err)
				continue
			}
			log.Printf("%s: [%s] %+v", topic,
				reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), msg)
		}
	}))
	<-(chan struct{})(nil)
}
