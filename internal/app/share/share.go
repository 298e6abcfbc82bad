// Package share serializes the shareable engine state to URL query
// parameters and rehydrates it from them. This is the only persisted
// state the engine has.
package share

import (
	"net/url"
	"strconv"
)

// State is the shareable filter and mode state.
type State struct {
	Country       string
	Province      string
	City          string
	Neighbourhood string
	Genre         string
	Date          string
	Query         string
	Event         string
	Offline       bool
}

// Encode serializes the state to a canonical query string. Empty
// dimensions are omitted.
func Encode(s State) string {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("country", s.Country)
	set("province", s.Province)
	set("city", s.City)
	set("neighbourhood", s.Neighbourhood)
	set("genre", s.Genre)
	set("date", s.Date)
	set("q", s.Query)
	set("event", s.Event)
	if s.Offline {
		v.Set("offline", "1")
	}
	return v.Encode()
}

// Parse rehydrates a state from a query string. Unknown keys are
// ignored; a malformed query string yields the zero state and an error.
func Parse(query string) (State, error) {
	v, err := url.ParseQuery(query)
	if err != nil {
		return State{}, err
	}
	return FromValues(v), nil
}

// FromValues rehydrates a state from already-parsed values.
func FromValues(v url.Values) State {
	offline, _ := strconv.ParseBool(v.Get("offline"))
	return State{
		Country:       v.Get("country"),
		Province:      v.Get("province"),
		City:          v.Get("city"),
		Neighbourhood: v.Get("neighbourhood"),
		Genre:         v.Get("genre"),
		Date:          v.Get("date"),
		Query:         v.Get("q"),
		Event:         v.Get("event"),
		Offline:       offline,
	}
}
