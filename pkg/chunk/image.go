package chunk

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"ember/pkg/opcode"
	"ember/pkg/value"
)

const (
	imageMagic   = "EMBC"
	imageVersion = 1
)

var ErrBadImage = errors.New("bad chunk image")

// image is the on-disk envelope. Sum is the BLAKE2b-256 digest of Payload.
type image struct {
	Magic   string `cbor:"1,keyasint"`
	Version uint   `cbor:"2,keyasint"`
	Payload []byte `cbor:"3,keyasint"`
	Sum     []byte `cbor:"4,keyasint"`
}

type imageFunction struct {
	Name      string          `cbor:"1,keyasint"`
	Arity     int             `cbor:"2,keyasint"`
	Code      []byte          `cbor:"3,keyasint"`
	Kinds     []byte          `cbor:"4,keyasint"`
	Lines     []int           `cbor:"5,keyasint"`
	Constants []imageConstant `cbor:"6,keyasint"`
}

type imageConstant struct {
	Kind uint8   `cbor:"1,keyasint"`
	Bool bool    `cbor:"2,keyasint,omitempty"`
	Int  int32   `cbor:"3,keyasint,omitempty"`
	Real float64 `cbor:"4,keyasint,omitempty"`
	Imag float64 `cbor:"5,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("chunk: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Digest returns the BLAKE2b-256 digest of data.
func Digest(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// imagePrefix is how the canonical envelope always begins: a 4-entry map
// whose first pair is key 1 and the 4-byte magic string.
var imagePrefix = append([]byte{0xa4, 0x01, 0x64}, imageMagic...)

// IsImage reports whether data looks like a chunk image rather than source
// text. It does not verify the image.
func IsImage(data []byte) bool {
	return bytes.HasPrefix(data, imagePrefix)
}

// MarshalImage serializes fn into a checksummed CBOR image.
func MarshalImage(fn *Function) ([]byte, error) {
	if fn == nil || fn.Chunk == nil {
		return nil, fmt.Errorf("chunk: marshal image: nil function")
	}
	c := fn.Chunk

	out := imageFunction{
		Name:      fn.Name,
		Arity:     fn.Arity,
		Code:      make([]byte, len(c.Code)),
		Kinds:     make([]byte, len(c.Code)),
		Lines:     c.Lines,
		Constants: make([]imageConstant, len(c.Constants)),
	}
	for i, u := range c.Code {
		out.Code[i] = u.Byte
		out.Kinds[i] = byte(u.Kind)
	}
	for i, v := range c.Constants {
		ic := imageConstant{Kind: uint8(v.Kind())}
		switch v.Kind() {
		case value.KindBool:
			ic.Bool = v.AsBool()
		case value.KindInteger:
			ic.Int = v.AsInteger()
		case value.KindFloat:
			ic.Real = v.AsFloat()
		case value.KindComplex:
			ic.Real = real(v.AsComplex())
			ic.Imag = imag(v.AsComplex())
		default:
			return nil, fmt.Errorf("chunk: marshal image: constant %d has unserializable kind %s", i, v.Kind())
		}
		out.Constants[i] = ic
	}

	payload, err := cborEncMode.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("chunk: marshal image: %w", err)
	}
	sum := Digest(payload)

	return cborEncMode.Marshal(image{
		Magic:   imageMagic,
		Version: imageVersion,
		Payload: payload,
		Sum:     sum[:],
	})
}

// UnmarshalImage decodes and verifies an image produced by MarshalImage.
func UnmarshalImage(data []byte) (*Function, error) {
	var env image
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if env.Magic != imageMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadImage, env.Magic)
	}
	if env.Version != imageVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadImage, env.Version)
	}
	sum := Digest(env.Payload)
	if !bytes.Equal(sum[:], env.Sum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrBadImage)
	}

	var in imageFunction
	if err := cbor.Unmarshal(env.Payload, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if len(in.Kinds) != len(in.Code) {
		return nil, fmt.Errorf("%w: %d unit kinds for %d units", ErrBadImage, len(in.Kinds), len(in.Code))
	}

	fn := NewFunction(in.Name, in.Arity)
	c := fn.Chunk
	for i, b := range in.Code {
		c.Code = append(c.Code, opcode.Unit{Kind: opcode.UnitKind(in.Kinds[i]), Byte: b})
	}
	c.Lines = append(c.Lines, in.Lines...)
	for i, ic := range in.Constants {
		var v value.Value
		switch value.Kind(ic.Kind) {
		case value.KindBool:
			v = value.Bool(ic.Bool)
		case value.KindInteger:
			v = value.Integer(ic.Int)
		case value.KindFloat:
			v = value.Float(ic.Real)
		case value.KindComplex:
			v = value.Complex(complex(ic.Real, ic.Imag))
		default:
			return nil, fmt.Errorf("%w: constant %d has kind %d", ErrBadImage, i, ic.Kind)
		}
		c.Constants = append(c.Constants, v)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	return fn, nil
}
