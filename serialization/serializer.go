package serial

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrSerialization   = errors.New("failed to serialize payload")
	ErrDeserialization = errors.New("failed to deserialize payload")
)

// Codec turns values into queue entries and back.
type Codec interface {
	Encode(in any) ([]byte, error)
	Decode(data []byte, out any) error
}

// Gob is the default codec; entries are compact but opaque.
type Gob struct{}

func (Gob) Encode(in any) ([]byte, error) {
	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	return buffer.Bytes(), nil
}

func (Gob) Decode(data []byte, out any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	return nil
}

// JSON keeps entries readable, e.g. when inspecting a redis list by hand.
type JSON struct{}

func (JSON) Encode(in any) ([]byte, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	return data, nil
}

func (JSON) Decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	return nil
}

var ErrUnknownCodec = errors.New("unknown codec")

// ForName returns the codec registered under name ("gob" or "json").
func ForName(name string) (Codec, error) {
	switch name {
	case "gob", "":
		return Gob{}, nil
	case "json":
		return JSON{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
