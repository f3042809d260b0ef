package canlight

import (
	"encoding/binary"

	"github.com/sirupsen/logrus"
)

var _lg = logrus.New()

// SetLogger replaces the package-level logger used by the core. Call once
// at process start-up, before any Bus is opened.
func SetLogger(lg *logrus.Logger) {
	if lg != nil {
		_lg = lg
	}
}

func serializeLittleEndianUint16(i uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, i)
	return b
}

func parseLittleEndianUint16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}
