package detection

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// COCO class names in model output order
var cocoClassNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// ClassNames maps class ids to printable labels
type ClassNames []string

// DefaultClassNames returns the COCO-80 names
func DefaultClassNames() ClassNames {
	out := make(ClassNames, len(cocoClassNames))
	copy(out, cocoClassNames)
	return out
}

// LoadClassNames reads one class name per line. An empty path yields the defaults.
func LoadClassNames(path string) (ClassNames, error) {
	if path == "" {
		return DefaultClassNames(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class names %s: %w", path, err)
	}
	defer f.Close()

	var names ClassNames
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class names %s: %w", path, err)
	}
	if len(names) == 0 {
		return DefaultClassNames(), nil
	}
	return names, nil
}

// Label returns a drawable name for id; unknown ids and names that the
// Hershey fonts cannot render become "Class_<id>"
func (n ClassNames) Label(id int) string {
	if id < 0 || id >= len(n) || !isPrintableASCII(n[id]) {
		return fmt.Sprintf("Class_%d", id)
	}
	return n[id]
}

func isPrintableASCII(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
