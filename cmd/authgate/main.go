package main

import (
	"github.com/joeydtaylor/steeze-auth/pkg/serverfx"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		serverfx.Module(
			serverfx.WithService("authgate"),
		),
	).Run()
}
