package main

import (
	"github.com/alapierre/go-einvoice-client/cmd"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}
	cmd.Execute()
}
