package geo

import (
	"context"
	"strings"
)

// Static is a Locator over a fixed in-memory table. It backs the chain when
// the network geocoder is unreachable and covers the common cities a voice
// assistant hears most.
type Static struct {
	places map[string]Place
}

// NewStatic returns a Static over the built-in city table.
func NewStatic() *Static {
	s := &Static{places: make(map[string]Place)}
	for _, p := range builtinPlaces {
		s.Add(p)
	}
	return s
}

// Add registers a place under its lowercased city name.
func (s *Static) Add(p Place) {
	s.places[strings.ToLower(p.City)] = p
}

// Locate implements Locator with an exact (case-insensitive) city match.
func (s *Static) Locate(_ context.Context, query string) (Place, error) {
	p, ok := s.places[strings.ToLower(strings.TrimSpace(query))]
	if !ok {
		return Place{}, ErrNotFound
	}
	return p, nil
}

var builtinPlaces = []Place{
	{City: "New York", State: "New York", Country: "United States", Lat: 40.7128, Lng: -74.0060, Timezone: "America/New_York"},
	{City: "Los Angeles", State: "California", Country: "United States", Lat: 34.0522, Lng: -118.2437, Timezone: "America/Los_Angeles"},
	{City: "Chicago", State: "Illinois", Country: "United States", Lat: 41.8781, Lng: -87.6298, Timezone: "America/Chicago"},
	{City: "Seattle", State: "Washington", Country: "United States", Lat: 47.6062, Lng: -122.3321, Timezone: "America/Los_Angeles"},
	{City: "London", State: "England", Country: "United Kingdom", Lat: 51.5074, Lng: -0.1278, Timezone: "Europe/London"},
	{City: "Paris", State: "Île-de-France", Country: "France", Lat: 48.8566, Lng: 2.3522, Timezone: "Europe/Paris"},
	{City: "Madrid", State: "Madrid", Country: "Spain", Lat: 40.4168, Lng: -3.7038, Timezone: "Europe/Madrid"},
	{City: "Berlin", State: "Berlin", Country: "Germany", Lat: 52.5200, Lng: 13.4050, Timezone: "Europe/Berlin"},
	{City: "Tokyo", State: "Tokyo", Country: "Japan", Lat: 35.6762, Lng: 139.6503, Timezone: "Asia/Tokyo"},
	{City: "Sydney", State: "New South Wales", Country: "Australia", Lat: -33.8688, Lng: 151.2093, Timezone: "Australia/Sydney"},
	{City: "Toronto", State: "Ontario", Country: "Canada", Lat: 43.6532, Lng: -79.3832, Timezone: "America/Toronto"},
	{City: "Bucharest", State: "Bucharest", Country: "Romania", Lat: 44.4268, Lng: 26.1025, Timezone: "Europe/Bucharest"},
}
