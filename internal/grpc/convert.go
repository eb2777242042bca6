package grpcserver

import (
	"bytes"
	"encoding/base64"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"cityfix/internal/blob"
	"cityfix/internal/perrors"
	"cityfix/internal/service"
)

// stringField reads key as a string. Absent and null read as "".
func stringField(in *structpb.Struct, key string) (string, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return "", nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", perrors.Validation(key + " must be a string")
	}
}

func optString(in *structpb.Struct, key string) (*string, error) {
	s, err := stringField(in, key)
	if err != nil || s == "" {
		return nil, err
	}
	return &s, nil
}

// optFloat accepts a number or a numeric string, like the multipart form does.
func optFloat(in *structpb.Struct, key string) (*float64, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		return &f, nil
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		s := strings.TrimSpace(k.StringValue)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, perrors.Validation(key + " must be a number")
		}
		return &f, nil
	default:
		return nil, perrors.Validation(key + " must be a number")
	}
}

// photoField decodes {"filename", "content_type", "data"} with data in base64.
func photoField(in *structpb.Struct) (*blob.Upload, error) {
	v, ok := in.GetFields()["photo"]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	p := v.GetStructValue()
	if p == nil {
		return nil, perrors.Validation("photo must be an object")
	}
	filename, err := stringField(p, "filename")
	if err != nil {
		return nil, err
	}
	contentType, err := stringField(p, "content_type")
	if err != nil {
		return nil, err
	}
	data, err := stringField(p, "data")
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, perrors.Validation("photo data must be base64")
	}
	return &blob.Upload{Filename: filename, ContentType: contentType, Body: bytes.NewReader(raw)}, nil
}

func authResultStruct(res *service.AuthResult) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]any{
		"token": res.Token,
		"user": map[string]any{
			"id":    res.User.ID,
			"name":  res.User.Name,
			"email": res.User.Email,
			"role":  string(res.User.Role),
		},
	})
	if err != nil {
		return nil, perrors.Internal(err)
	}
	return out, nil
}
