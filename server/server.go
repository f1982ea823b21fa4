// Package server exposes the camera viewer over HTTP.  One Viewer wraps the
// adapter, hand-off buffer, display surface, trigger controller and recorder
// behind a goji route table mounted under a chi root.
package server

import (
	"encoding/json"
	"go/types"
	"log"
	"net/http"

	"goji.io"
)

// HTTPer is a type which exposes an HTTP route table
type HTTPer interface {
	RT() map[goji.Pattern]http.HandlerFunc
}

// HumanPayload is a struct that holds the various types of data and can
// refer to and render the correct type in a human-friendly way
type HumanPayload struct {
	// T is the type of data actually filled in
	T types.BasicKind

	// Bool holds a bool
	Bool bool

	// Int holds an int
	Int int

	// Float holds a float64
	Float float64

	// String holds a string
	String string
}

// EncodeAndRespond writes the payload to w as the appropriate single-key
// JSON object
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var obj interface{}
	switch hp.T {
	case types.Bool:
		obj = BoolT{Bool: hp.Bool}
	case types.Int:
		obj = IntT{Int: hp.Int}
	case types.Float64:
		obj = FloatT{F64: hp.Float}
	case types.String:
		obj = StrT{Str: hp.String}
	default:
		http.Error(w, "payload type unknown to the server", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Printf("error encoding payload to json: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// StrT is a struct with a single Str field
type StrT struct {
	Str string `json:"str"`
}

// FloatT is a struct with a single F64 field
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single Int field
type IntT struct {
	Int int `json:"int"`
}

// BoolT is a struct with a single Bool field
type BoolT struct {
	Bool bool `json:"bool"`
}
