package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
	"gopkg.in/yaml.v3"
)

// paramsFile is the YAML form of token.PublicParams.
type paramsFile struct {
	Group string `yaml:"group"`
	G0    string `yaml:"g0"`
	Gxt   string `yaml:"gxt"`
	Gd    string `yaml:"gd"`
}

// keyFile is the YAML form of a client or server key pair.
type keyFile struct {
	Group  string `yaml:"group"`
	Role   string `yaml:"role"`
	Secret string `yaml:"secret"`
	Public string `yaml:"public"`
}

const (
	roleClient = "client"
	roleServer = "server"
)

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

func encodeHex(m interface{ MarshalBinary() ([]byte, error) }) (string, error) {
	data, err := m.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

func decodePointHex(group curve.Curve, s string) (curve.Point, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return token.DecodePoint(group, data)
}

func decodeScalarHex(group curve.Curve, s string) (curve.Scalar, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return token.DecodeScalar(group, data)
}

func saveParams(path string, pp *token.PublicParams) error {
	f := paramsFile{Group: pp.Group().Name()}
	var err error
	if f.G0, err = encodeHex(pp.G0); err != nil {
		return err
	}
	if f.Gxt, err = encodeHex(pp.Gxt); err != nil {
		return err
	}
	if f.Gd, err = encodeHex(pp.Gd); err != nil {
		return err
	}
	return writeYAML(path, &f)
}

func loadParams(path string) (*token.PublicParams, error) {
	var f paramsFile
	if err := readYAML(path, &f); err != nil {
		return nil, fmt.Errorf("params %s: %w", path, err)
	}
	group, err := curve.FromName(f.Group)
	if err != nil {
		return nil, fmt.Errorf("params %s: %w", path, err)
	}
	pp := &token.PublicParams{}
	if pp.G0, err = decodePointHex(group, f.G0); err != nil {
		return nil, fmt.Errorf("params %s: g0: %w", path, err)
	}
	if pp.Gxt, err = decodePointHex(group, f.Gxt); err != nil {
		return nil, fmt.Errorf("params %s: gxt: %w", path, err)
	}
	if pp.Gd, err = decodePointHex(group, f.Gd); err != nil {
		return nil, fmt.Errorf("params %s: gd: %w", path, err)
	}
	if err = pp.Validate(); err != nil {
		return nil, fmt.Errorf("params %s: %w", path, err)
	}
	return pp, nil
}

func saveKey(path, role string, secret curve.Scalar, public curve.Point) error {
	f := keyFile{Group: public.Curve().Name(), Role: role}
	var err error
	if f.Secret, err = encodeHex(secret); err != nil {
		return err
	}
	if f.Public, err = encodeHex(public); err != nil {
		return err
	}
	return writeYAML(path, &f)
}

func loadKey(path, role string, pp *token.PublicParams) (secret curve.Scalar, public curve.Point, err error) {
	var f keyFile
	if err = readYAML(path, &f); err != nil {
		return nil, nil, fmt.Errorf("key %s: %w", path, err)
	}
	if f.Role != role {
		return nil, nil, fmt.Errorf("key %s: expected a %s key, got %q", path, role, f.Role)
	}
	if f.Group != pp.Group().Name() {
		return nil, nil, fmt.Errorf("key %s: group %q does not match the parameters", path, f.Group)
	}
	if secret, err = decodeScalarHex(pp.Group(), f.Secret); err != nil {
		return nil, nil, fmt.Errorf("key %s: %w", path, err)
	}
	if public, err = decodePointHex(pp.Group(), f.Public); err != nil {
		return nil, nil, fmt.Errorf("key %s: %w", path, err)
	}
	return secret, public, nil
}

func loadServerKey(path string, pp *token.PublicParams) (*token.ServerKey, error) {
	secret, public, err := loadKey(path, roleServer, pp)
	if err != nil {
		return nil, err
	}
	key := &token.ServerKey{Secret: secret, Public: public}
	if err = key.Validate(pp); err != nil {
		return nil, fmt.Errorf("key %s: %w", path, err)
	}
	return key, nil
}

func loadClientKey(path string, pp *token.PublicParams) (*token.ClientKey, error) {
	secret, public, err := loadKey(path, roleClient, pp)
	if err != nil {
		return nil, err
	}
	key := &token.ClientKey{Secret: secret, Public: public}
	if err = key.Validate(pp); err != nil {
		return nil, fmt.Errorf("key %s: %w", path, err)
	}
	return key, nil
}
