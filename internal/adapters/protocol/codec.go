package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spounge-ai/ffproxy/internal/domain"
	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Codec serializes account requests and decodes account responses.
type Codec struct {
	request  protoreflect.MessageDescriptor
	response protoreflect.MessageDescriptor
	marshal  proto.MarshalOptions
	toJSON   protojson.MarshalOptions
}

// NewCodec builds the message descriptors for the account schema.
func NewCodec() (*Codec, error) {
	fd, err := protodesc.NewFile(schemaFile(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build account schema: %w", err)
	}

	msgs := fd.Messages()
	req := msgs.ByName(requestMessage)
	resp := msgs.ByName(responseMessage)
	if req == nil || resp == nil {
		return nil, fmt.Errorf("account schema is missing %s or %s", requestMessage, responseMessage)
	}

	return &Codec{
		request:  req,
		response: resp,
		marshal:  proto.MarshalOptions{Deterministic: true},
		toJSON:   protojson.MarshalOptions{},
	}, nil
}

// EncodeRequest serializes the personal-show request for a player identifier.
func (c *Codec) EncodeRequest(identifier, auxiliary string) ([]byte, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(identifier), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: identifier %q is not a numeric player id", app_errors.ErrInvalidInput, identifier)
	}
	aux, err := strconv.ParseUint(strings.TrimSpace(auxiliary), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: auxiliary field %q is not numeric", app_errors.ErrInvalidInput, auxiliary)
	}

	msg := dynamicpb.NewMessage(c.request)
	fields := c.request.Fields()
	msg.Set(fields.ByNumber(1), protoreflect.ValueOfUint64(id))
	msg.Set(fields.ByNumber(2), protoreflect.ValueOfUint32(uint32(aux)))

	return c.marshal.Marshal(msg)
}

// DecodeAccount parses a binary account response into its JSON projection.
func (c *Codec) DecodeAccount(data []byte) (*domain.AccountRecord, error) {
	msg := dynamicpb.NewMessage(c.response)
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", responseMessage, err)
	}

	raw, err := c.toJSON.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to project %s to json: %w", responseMessage, err)
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to read %s projection: %w", responseMessage, err)
	}

	return &domain.AccountRecord{Fields: fields}, nil
}

// ResponseDescriptor exposes the response message type, mainly for building fixtures.
func (c *Codec) ResponseDescriptor() protoreflect.MessageDescriptor {
	return c.response
}
