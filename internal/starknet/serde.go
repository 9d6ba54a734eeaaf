package starknet

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"
)

var (
	// ErrEncodingOverflow is returned when a value exceeds its declared width.
	ErrEncodingOverflow = errors.New("encoding overflow")
	ErrShortInput       = errors.New("calldata too short")
	ErrInvalidBool      = errors.New("bool felt is neither 0 nor 1")
)

// EncodingError names the field whose value violated its declared width.
type EncodingError struct {
	Field string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// DecodingError names the field that could not be read back.
type DecodingError struct {
	Field string
	Err   error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// Writer appends fields at their native width. The first failure sticks and
// later writes are ignored.
type Writer struct {
	out []*felt.Felt
	err error
}

func NewWriter(capacity int) *Writer {
	return &Writer{out: make([]*felt.Felt, 0, capacity)}
}

func (w *Writer) fail(field string, err error) {
	if w.err == nil {
		w.err = &EncodingError{Field: field, Err: err}
	}
}

// Felt appends a copy of f.
func (w *Writer) Felt(field string, f *felt.Felt) {
	if w.err != nil {
		return
	}
	if f == nil {
		w.fail(field, fmt.Errorf("%w: nil felt", ErrEncodingOverflow))
		return
	}
	w.out = append(w.out, new(felt.Felt).Set(f))
}

// Felts appends each element of fs in order.
func (w *Writer) Felts(field string, fs []*felt.Felt) {
	for _, f := range fs {
		w.Felt(field, f)
	}
}

// U128 appends v as one felt.
func (w *Writer) U128(field string, v *uint256.Int) {
	if w.err != nil {
		return
	}
	if v == nil || v.BitLen() > 128 {
		w.fail(field, fmt.Errorf("%w: exceeds 128 bits", ErrEncodingOverflow))
		return
	}
	w.out = append(w.out, new(felt.Felt).SetBigInt(v.ToBig()))
}

// Uint64 appends v as one felt.
func (w *Writer) Uint64(field string, v uint64) {
	if w.err != nil {
		return
	}
	w.out = append(w.out, new(felt.Felt).SetUint64(v))
}

// Bool appends 1 or 0.
func (w *Writer) Bool(field string, b bool) {
	if b {
		w.Uint64(field, 1)
		return
	}
	w.Uint64(field, 0)
}

// U256 appends v as two felts, low 128 bits first.
func (w *Writer) U256(field string, v *uint256.Int) {
	if w.err != nil {
		return
	}
	if v == nil {
		w.fail(field, fmt.Errorf("%w: nil u256", ErrEncodingOverflow))
		return
	}
	lo, hi := SplitU256(v)
	w.U128(field+".low", lo)
	w.U128(field+".high", hi)
}

// Len appends a length prefix.
func (w *Writer) Len(field string, n int) {
	if n < 0 {
		w.fail(field, fmt.Errorf("%w: negative length", ErrEncodingOverflow))
		return
	}
	w.Uint64(field, uint64(n))
}

// Result returns the encoded felts or the first error.
func (w *Writer) Result() ([]*felt.Felt, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.out, nil
}

// Reader consumes felts in declaration order.
type Reader struct {
	in  []*felt.Felt
	err error
}

func NewReader(in []*felt.Felt) *Reader {
	return &Reader{in: in}
}

func (r *Reader) fail(field string, err error) {
	if r.err == nil {
		r.err = &DecodingError{Field: field, Err: err}
	}
}

func (r *Reader) next(field string) *felt.Felt {
	if r.err != nil {
		return nil
	}
	if len(r.in) == 0 {
		r.fail(field, ErrShortInput)
		return nil
	}
	f := r.in[0]
	r.in = r.in[1:]
	return f
}

func (r *Reader) Felt(field string) felt.Felt {
	f := r.next(field)
	if f == nil {
		return felt.Felt{}
	}
	return *f
}

func (r *Reader) U128(field string) uint256.Int {
	f := r.next(field)
	if f == nil {
		return uint256.Int{}
	}
	b := f.BigInt(new(big.Int))
	if b.BitLen() > 128 {
		r.fail(field, fmt.Errorf("%w: exceeds 128 bits", ErrEncodingOverflow))
		return uint256.Int{}
	}
	v, _ := uint256.FromBig(b)
	return *v
}

func (r *Reader) Uint64(field string) uint64 {
	f := r.next(field)
	if f == nil {
		return 0
	}
	b := f.BigInt(new(big.Int))
	if !b.IsUint64() {
		r.fail(field, fmt.Errorf("%w: exceeds 64 bits", ErrEncodingOverflow))
		return 0
	}
	return b.Uint64()
}

func (r *Reader) Bool(field string) bool {
	f := r.next(field)
	if f == nil {
		return false
	}
	b := f.BigInt(new(big.Int))
	switch {
	case b.Sign() == 0:
		return false
	case b.Cmp(big.NewInt(1)) == 0:
		return true
	default:
		r.fail(field, ErrInvalidBool)
		return false
	}
}

func (r *Reader) U256(field string) uint256.Int {
	lo := r.U128(field + ".low")
	hi := r.U128(field + ".high")
	return JoinU256(&lo, &hi)
}

// Len reads a length prefix bounded by the remaining input.
func (r *Reader) Len(field string) int {
	n := r.Uint64(field)
	if r.err != nil {
		return 0
	}
	if n > uint64(len(r.in)) {
		r.fail(field, ErrShortInput)
		return 0
	}
	return int(n)
}

// Rest returns the unread felts.
func (r *Reader) Rest() []*felt.Felt { return r.in }

func (r *Reader) Err() error { return r.err }

// SplitU256 returns the low and high 128-bit halves of v.
func SplitU256(v *uint256.Int) (lo, hi *uint256.Int) {
	return &uint256.Int{v[0], v[1], 0, 0}, &uint256.Int{v[2], v[3], 0, 0}
}

// JoinU256 is the inverse of SplitU256.
func JoinU256(lo, hi *uint256.Int) uint256.Int {
	return uint256.Int{lo[0], lo[1], hi[0], hi[1]}
}
