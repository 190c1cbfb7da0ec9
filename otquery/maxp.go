package otquery

import (
	"github.com/mattlag/ttx-wasm/ot"
)

// MaxPTableInfo is a typed query view over OpenType table 'maxp'.
// For version 1.0 tables, the TrueType profile fields are decoded as well.
type MaxPTableInfo struct {
	VersionFixed uint32
	NumGlyphs    uint16

	// TrueType profile fields (version 1.0 only)
	HasExtendedProfile    bool
	MaxPoints             uint16
	MaxContours           uint16
	MaxCompositePoints    uint16
	MaxCompositeContours  uint16
	MaxZones              uint16
	MaxTwilightPoints     uint16
	MaxStorage            uint16
	MaxFunctionDefs       uint16
	MaxInstructionDefs    uint16
	MaxStackElements      uint16
	MaxSizeOfInstructions uint16
	MaxComponentElements  uint16
	MaxComponentDepth     uint16
}

const maxpMinSize = 6
const maxpV10Size = 32

// MaxPInfo decodes table 'maxp' from raw bytes.
// Returns (info, true) on success, or (zero, false) if the table is
// missing or too short.
func MaxPInfo(otf *ot.Font) (MaxPTableInfo, bool) {
	var info MaxPTableInfo
	if otf == nil {
		return info, false
	}
	table := otf.Table(ot.T("maxp"))
	if table == nil {
		return info, false
	}
	b := table.Binary()
	if len(b) < maxpMinSize {
		return info, false
	}
	info.VersionFixed = u32(b[0:])
	info.NumGlyphs = u16(b[4:])

	if info.VersionFixed != 0x00010000 || len(b) < maxpV10Size {
		return info, true
	}
	info.HasExtendedProfile = true
	info.MaxPoints = u16(b[6:])
	info.MaxContours = u16(b[8:])
	info.MaxCompositePoints = u16(b[10:])
	info.MaxCompositeContours = u16(b[12:])
	info.MaxZones = u16(b[14:])
	info.MaxTwilightPoints = u16(b[16:])
	info.MaxStorage = u16(b[18:])
	info.MaxFunctionDefs = u16(b[20:])
	info.MaxInstructionDefs = u16(b[22:])
	info.MaxStackElements = u16(b[24:])
	info.MaxSizeOfInstructions = u16(b[26:])
	info.MaxComponentElements = u16(b[28:])
	info.MaxComponentDepth = u16(b[30:])
	return info, true
}
