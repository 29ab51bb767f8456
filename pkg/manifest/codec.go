package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Gojibodev/keklauncher/internal/models"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func normalize(m *models.Modpack) {
	if m.Mods == nil {
		m.Mods = []models.ModDescriptor{}
	}
	if m.Folders.Essential == nil {
		m.Folders.Essential = []string{}
	}
	if m.Folders.Optional == nil {
		m.Folders.Optional = []string{}
	}
}

// EncodeJSON renders the manifest as indented JSON.
func EncodeJSON(m models.Modpack) ([]byte, error) {
	normalize(&m)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// DecodeJSON validates and decodes a JSON manifest.
func DecodeJSON(data []byte) (models.Modpack, error) {
	if err := Validate(data); err != nil {
		return models.Modpack{}, err
	}
	var m models.Modpack
	if err := json.Unmarshal(data, &m); err != nil {
		return models.Modpack{}, fmt.Errorf("decode manifest: %w", err)
	}
	normalize(&m)
	return m, nil
}

// EncodeBinary renders the manifest as a zstd-compressed protobuf Struct.
func EncodeBinary(m models.Modpack) ([]byte, error) {
	data, err := EncodeJSON(m)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("flatten manifest: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build manifest struct: %w", err)
	}
	raw, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

// Decode accepts JSON or protobuf manifests, either optionally zstd framed.
func Decode(data []byte) (models.Modpack, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return models.Modpack{}, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return models.Modpack{}, fmt.Errorf("decompress manifest: %w", err)
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return DecodeJSON(trimmed)
	}

	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return models.Modpack{}, fmt.Errorf("decode manifest: %w", err)
	}
	jsonData, err := protojson.Marshal(&st)
	if err != nil {
		return models.Modpack{}, fmt.Errorf("convert manifest: %w", err)
	}
	return DecodeJSON(jsonData)
}
