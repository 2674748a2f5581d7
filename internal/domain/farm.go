package domain

import (
	"time"
)

// Producer is a farmer registered on the platform. The engine only reads
// producers; their lifecycle is managed elsewhere.
type Producer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// Plot is a cultivated parcel belonging to a producer.
type Plot struct {
	ID         string  `json:"id"`
	ProducerID string  `json:"producerId"`
	Name       string  `json:"name"`
	CropName   string  `json:"cropName,omitempty"`
	AreaHa     float64 `json:"areaHa,omitempty"`
}

// Observation is one field measurement collected by the mobile app,
// e.g. an emergence rate or a pest pressure reading for a plot.
type Observation struct {
	ID         string    `json:"id"`
	ProducerID string    `json:"producerId"`
	PlotID     string    `json:"plotId,omitempty"`
	PlotName   string    `json:"plotName,omitempty"`
	CropName   string    `json:"cropName,omitempty"`
	Metric     string    `json:"metric"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observedAt"`
}
