package bank

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
)

// SupportedMajor is the bank file format major version this build reads.
const SupportedMajor = "v1"

//go:embed sample_bank.json
var sampleBank []byte

// document is the on-disk bank format.
type document struct {
	FormatVersion string  `json:"format_version"`
	Topics        []Topic `json:"topics"`
	Items         []Item  `json:"items"`
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Load parses and validates a bank document.
func Load(r io.Reader) (*Bank, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrInvalidBank, err)
	}

	schema, err := bankSchema()
	if err != nil {
		return nil, fmt.Errorf("compile bank schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}
	if err := checkFormatVersion(doc.FormatVersion); err != nil {
		return nil, err
	}

	return New(doc.Topics, doc.Items)
}

// LoadFile reads a bank from a JSON file.
func LoadFile(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bank: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the embedded sample bank.
func Default() *Bank {
	b, err := Load(bytes.NewReader(sampleBank))
	if err != nil {
		panic(fmt.Sprintf("embedded sample bank: %v", err))
	}
	return b
}

func checkFormatVersion(v string) error {
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: format_version %q is not a semantic version", ErrInvalidBank, v)
	}
	if semver.Major(v) != SupportedMajor {
		return fmt.Errorf("%w: format_version %s unsupported (want %s.x)", ErrInvalidBank, v, SupportedMajor)
	}
	return nil
}

// bankSchema compiles the document schema once.
func bankSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a plain decoded JSON value, not Go literals.
		defBytes, err := json.Marshal(documentSchema)
		if err != nil {
			compileErr = err
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			compileErr = err
			return
		}

		c := jsonschema.NewCompiler()
		const url = "schema://question-bank.json"
		if err := c.AddResource(url, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(url)
	})
	return compiled, compileErr
}
