// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"fmt"
	"time"

	"github.com/tve/rflink/varint"
)

// payloadFormat turns the payload of one JeeLabs packet type into a value that jl-format
// publishes through the codec and the decode command prints.
type payloadFormat struct {
	name   string
	decode func([]byte) (fmt.Stringer, error)
}

// payloadFormats is indexed by packet type byte.
var payloadFormats = map[byte]payloadFormat{
	10: {"gpsNav", decodeGPSNav},
}

// GPSNav is a navigation fix. On the air it is eight varints: time of day as HHMMSSsss, 'A' for
// a valid fix, latitude and longitude in micro-degrees, speed in 1/10000 knots, course in
// 1/10000 degrees, date as DDMMYY and magnetic variation in 1/10000 degrees.
type GPSNav struct {
	Time   time.Time `json:"time"`
	Valid  bool      `json:"valid"`
	Lat    float64   `json:"lat"`
	Lon    float64   `json:"lon"`
	Knots  float64   `json:"knots"`
	Course float64   `json:"course"`
	MagVar float64   `json:"magvar"`
}

func decodeGPSNav(pkt []byte) (fmt.Stringer, error) {
	v := varint.Decode(pkt)
	if len(v) != 8 {
		return nil, fmt.Errorf("%d values, want 8", len(v))
	}
	return &GPSNav{
		Time:   gpsTime(v[6], v[0]),
		Valid:  v[1] == 'A',
		Lat:    float64(v[2]) / 1e6,
		Lon:    float64(v[3]) / 1e6,
		Knots:  float64(v[4]) / 1e4,
		Course: float64(v[5]) / 1e4,
		MagVar: float64(v[7]) / 1e4,
	}, nil
}

func (g *GPSNav) String() string {
	status := "WARN"
	if g.Valid {
		status = "OK"
	}
	return fmt.Sprintf("%s %s <%.6f %.6f> %.4fkts %.1f° mag%.1f°",
		g.Time.Format("2006-01-02 15:04:05.000"), status, g.Lat, g.Lon, g.Knots, g.Course, g.MagVar)
}

// gpsTime combines a DDMMYY date with a HHMMSSsss time of day, in UTC.
func gpsTime(date, tod int) time.Time {
	secs, ms := tod/1000, tod%1000
	return time.Date(2000+date%100, time.Month(date/100%100), date/10000,
		secs/10000, secs/100%100, secs%100, ms*int(time.Millisecond), time.UTC)
}
