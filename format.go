package sqlinspect

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatFileSize renders a byte count with one decimal in 1024-based units.
func FormatFileSize(size uint64) string {
	if size == 0 {
		return "0 B"
	}
	exp := 0
	for v := size; v >= 1024 && exp < len(sizeUnits)-1; v /= 1024 {
		exp++
	}
	value := float64(size) / float64(uint64(1)<<(10*exp))
	return fmt.Sprintf("%.1f %s", value, sizeUnits[exp])
}
