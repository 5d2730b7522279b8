package runtime

// BlockID is a frame scoped handle to a block in the block registry.
type BlockID uint32

// NoBlock means "no block", e.g. a method without params or return value.
const NoBlock BlockID = 0

// BlockStat describes a registered block.
type BlockStat struct {
	Codec uint64
	Size  uint32
}

// Supported block codecs.
const (
	CodecRaw     uint64 = 0x55
	CodecCBOR    uint64 = 0x51
	CodecDagCBOR uint64 = 0x71
)

// ValidCodec reports whether blocks of this codec may cross the syscall boundary.
func ValidCodec(codec uint64) bool {
	switch codec {
	case CodecRaw, CodecCBOR, CodecDagCBOR:
		return true
	default:
		return false
	}
}
