package zstd

import "go.uber.org/zap"

// Format names the frame formats (spec.md §6). A Context records the
// selected Format but the decoder does not read it: every frame is
// parsed as starting with the 4-byte magic number, whichever Format is
// selected.
type Format int

const (
	// FormatZstd1 is the standard format, with the magic number.
	FormatZstd1 Format = iota
	// FormatZstd1Magicless names the format without the magic number;
	// selecting it does not change how frames are parsed.
	FormatZstd1Magicless
)

// Bounds describes the legal range of a tunable integer parameter.
type Bounds struct {
	Min, Max, Default int
}

// windowLogMaxBounds are the legal range for WithWindowLogMax.
var windowLogMaxBounds = Bounds{Min: 10, Max: 31, Default: 27}

// WindowLogMaxBounds reports the accepted range for WithWindowLogMax.
func WindowLogMaxBounds() Bounds { return windowLogMaxBounds }

// Option configures a Context at construction time (NewContext).
type Option func(*params) error

type params struct {
	windowLogMax        int
	format              Format
	forceIgnoreChecksum bool
	refMultipleDDicts   bool
	logger              *zap.Logger
}

func (p *params) setDefault() {
	*p = params{
		windowLogMax: windowLogMaxBounds.Default,
		format:       FormatZstd1,
		logger:       zap.NewNop(),
	}
}

// WithWindowLogMax caps the accepted window size, expressed as log2.
// Frames demanding a larger window fail with ErrWindowTooLarge.
func WithWindowLogMax(log int) Option {
	return func(p *params) error {
		if log < windowLogMaxBounds.Min || log > windowLogMaxBounds.Max {
			return newDecodeError(KindFrameParameterUnsupported, -1,
				"window log max out of bounds")
		}
		p.windowLogMax = log
		return nil
	}
}

// WithFormat records the frame format; decoding does not consult it
// (see Format).
func WithFormat(f Format) Option {
	return func(p *params) error { p.format = f; return nil }
}

// WithForceIgnoreChecksum disables trailing checksum verification.
func WithForceIgnoreChecksum(skip bool) Option {
	return func(p *params) error { p.forceIgnoreChecksum = skip; return nil }
}

// WithRefMultipleDDicts lets the context hold a table of dictionaries
// indexed by dictID, selected automatically from each frame's header.
func WithRefMultipleDDicts(enabled bool) Option {
	return func(p *params) error { p.refMultipleDDicts = enabled; return nil }
}

// WithLogger attaches a structured logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *params) error {
		if l != nil {
			p.logger = l
		}
		return nil
	}
}

// DictOption configures how a dictionary is attached via LoadDictionary.
type DictOption func(*dictParams)

// DictContentType hints how LoadDictionary should interpret its input.
type DictContentType int

const (
	DictContentAuto DictContentType = iota
	DictContentRaw
	DictContentZstd
)

type dictParams struct {
	contentType DictContentType
	byReference bool
}

func (d *dictParams) setDefault() {
	*d = dictParams{contentType: DictContentAuto}
}

// WithDictContentType overrides auto-detection of the dictionary's form.
func WithDictContentType(t DictContentType) DictOption {
	return func(d *dictParams) { d.contentType = t }
}

// WithDictByReference instructs LoadDictionary to keep a reference to
// the caller's slice instead of copying it; the caller must then
// guarantee the slice outlives the Context.
func WithDictByReference(byRef bool) DictOption {
	return func(d *dictParams) { d.byReference = byRef }
}
