package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	env "github.com/robotalks/mcu.go/pkg/env/controller"
	fx "github.com/robotalks/mcu.go/pkg/framework"
	"github.com/robotalks/mcu.go/pkg/module"
	"github.com/robotalks/mcu.go/pkg/modules/brake"
	"github.com/robotalks/mcu.go/pkg/modules/sensor"
	"github.com/robotalks/mcu.go/pkg/modules/ttl"
	"github.com/robotalks/mcu.go/pkg/modules/valve"
)

func init() {
	env.SetupFlags()
}

func must(m module.Module, err error) module.Module {
	if err != nil {
		log.Fatalln(err)
	}
	return m
}

func main() {
	flag.Parse()

	e := env.NewConfig().MustNewEnv()
	// the module map of this controller, pins on the simulated board
	k := e.MustNewKernel(
		must(ttl.New(e.NewCore(1, 1), 5, 6)),
		must(sensor.New(e.NewCore(2, 1), 14)),
		must(valve.New(e.NewCore(3, 1), valve.Config{Pin: 7, NormallyClosed: true, StartClosed: true})),
		must(brake.New(e.NewCore(4, 1), brake.Config{Pin: 9, StartEngaged: true})),
	)

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NewLoop().Add(e, k))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
