package ot

// Table checksums, as defined by the sfnt specification: the sum of all
// uint32 values of the table, big-endian, with the table virtually
// zero-padded to a multiple of four bytes.

// checkSumAdjustmentMagic is subtracted from the whole-file sum to produce
// head.checkSumAdjustment.
const checkSumAdjustmentMagic = 0xB1B0AFBA

// headChecksumAdjustmentOffset is the byte position of checkSumAdjustment
// within the head table.
const headChecksumAdjustmentOffset = 8

// checkSum computes the sfnt checksum of b. Trailing bytes beyond the last
// complete uint32 count as if zero-padded.
func checkSum(b []byte) uint32 {
	var sum uint32
	n := len(b) &^ 3
	for i := 0; i < n; i += 4 {
		sum += u32(b[i:])
	}
	for i, shift := n, 24; i < len(b); i, shift = i+1, shift-8 {
		sum += uint32(b[i]) << shift
	}
	return sum
}

// headCheckSum computes the checksum of a head table payload with the
// checkSumAdjustment field counted as zero, which is how the field's value
// was defined when the font was assembled.
func headCheckSum(b []byte) uint32 {
	sum := checkSum(b)
	if len(b) >= headChecksumAdjustmentOffset+4 {
		sum -= u32(b[headChecksumAdjustmentOffset:])
	}
	return sum
}

// verifyTableChecksum recomputes the checksum of a table payload and
// compares it against the directory's declared value. A mismatch is always
// a warning, never an error: fonts with stale checksums are common in the
// wild and all content is still fully usable.
func verifyTableChecksum(tag Tag, payload binarySegm, declared uint32, ec *errorCollector) {
	var sum uint32
	if tag == T("head") {
		sum = headCheckSum(payload)
	} else {
		sum = checkSum(payload)
	}
	if sum != declared {
		ec.addWarning(tag, "table checksum mismatch", 0)
		tracer().Infof("table %s checksum mismatch: directory says %#x, computed %#x", tag, declared, sum)
	}
}
