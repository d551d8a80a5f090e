// Copyright (c) 2016 by Thorsten von Eicken

// Command rfgateway bridges an RFM12B radio speaking the JeeLabs RF12 packet format to an MQTT
// broker, and decodes RF12 frames captured from a serial port.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
