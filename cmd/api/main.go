package main

import (
	"go.uber.org/fx"

	"github.com/swiftcart/swiftcart/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
