package detection

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gocv.io/x/gocv"
	"google.golang.org/protobuf/types/known/structpb"

	"dualvision-worker-go/internal/models"
)

func TestClassNamesLabel(t *testing.T) {
	names := ClassNames{"person", "café", "", "dog"}
	test.That(t, names.Label(0), test.ShouldEqual, "person")
	test.That(t, names.Label(1), test.ShouldEqual, "Class_1")
	test.That(t, names.Label(2), test.ShouldEqual, "Class_2")
	test.That(t, names.Label(3), test.ShouldEqual, "dog")
	test.That(t, names.Label(7), test.ShouldEqual, "Class_7")
	test.That(t, names.Label(-1), test.ShouldEqual, "Class_-1")
}

func TestLoadClassNames(t *testing.T) {
	names, err := LoadClassNames("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, names, test.ShouldHaveLength, 80)
	test.That(t, names.Label(0), test.ShouldEqual, "person")

	path := filepath.Join(t.TempDir(), "classes.txt")
	test.That(t, os.WriteFile(path, []byte("cat\n\n  dog  \nbird\n"), 0o644), test.ShouldBeNil)
	names, err = LoadClassNames(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, names, test.ShouldResemble, ClassNames{"cat", "dog", "bird"})

	_, err = LoadClassNames(filepath.Join(t.TempDir(), "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeYOLO(t *testing.T) {
	// two anchors, two classes: rows are cx, cy, w, h, class0, class1
	const anchors = 2
	data := []float32{
		100, 300, // cx
		100, 300, // cy
		40, 20, // w
		60, 20, // h
		0.9, 0.1, // class 0
		0.05, 0.2, // class 1
	}
	cands := decodeYOLO(data, 6, anchors, 0.25, 2, 0.5)
	test.That(t, cands, test.ShouldHaveLength, 1)
	test.That(t, cands[0].classID, test.ShouldEqual, 0)
	test.That(t, cands[0].score, test.ShouldAlmostEqual, float32(0.9))
	test.That(t, cands[0].box, test.ShouldResemble, image.Rect(160, 35, 240, 65))

	cands = decodeYOLO(data, 6, anchors, 0.15, 1, 1)
	test.That(t, cands, test.ShouldHaveLength, 2)
	test.That(t, cands[1].classID, test.ShouldEqual, 1)

	test.That(t, decodeYOLO(data[:5], 6, anchors, 0.1, 1, 1), test.ShouldBeNil)
	test.That(t, decodeYOLO(data, 4, 3, 0.1, 1, 1), test.ShouldBeNil)
}

func TestLearnedDetectorMissingModel(t *testing.T) {
	d := NewLearnedDetector(LearnedOptions{ModelPath: filepath.Join(t.TempDir(), "none.onnx")})
	test.That(t, d.Available(), test.ShouldBeFalse)
	test.That(t, d.Kind(), test.ShouldEqual, models.SourceLearned)
	test.That(t, d.Close(), test.ShouldBeNil)
}

func TestCascadeDetectorMissingFiles(t *testing.T) {
	d := NewCascadeDetector(t.TempDir(), []string{"face", "eye"})
	test.That(t, d.Available(), test.ShouldBeFalse)
	test.That(t, d.Names(), test.ShouldBeEmpty)
	test.That(t, d.Kind(), test.ShouldEqual, models.SourceCascade)
	test.That(t, d.Close(), test.ShouldBeNil)
}

func TestCascadeFile(t *testing.T) {
	test.That(t, CascadeFile("face"), test.ShouldEqual, "haarcascade_frontalface_default.xml")
	test.That(t, CascadeFile("upperbody"), test.ShouldEqual, "haarcascade_upperbody.xml")
	test.That(t, CascadeFile("smile"), test.ShouldEqual, "haarcascade_smile.xml")
}

func TestUnavailableDetector(t *testing.T) {
	u := &Unavailable{Source: models.SourceLearned}
	test.That(t, u.Available(), test.ShouldBeFalse)
	dets, err := u.Detect(context.Background(), gocv.Mat{})
	test.That(t, errors.Is(err, ErrUnavailable), test.ShouldBeTrue)
	test.That(t, dets, test.ShouldBeEmpty)
}

func TestParseGRPCEndpoint(t *testing.T) {
	for _, tc := range []struct {
		in     string
		target string
		tls    bool
	}{
		{"localhost:50052", "localhost:50052", false},
		{"detector.example.com", "detector.example.com:443", true},
		{"detector.example.com:8443", "detector.example.com:8443", true},
		{"http://10.0.0.5", "10.0.0.5:80", false},
		{"https://infer.local:9000", "infer.local:9000", true},
	} {
		target, creds, err := parseGRPCEndpoint(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, target, test.ShouldEqual, tc.target)
		test.That(t, creds.Info().SecurityProtocol == "tls", test.ShouldEqual, tc.tls)
	}

	_, _, err := parseGRPCEndpoint("")
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = parseGRPCEndpoint("ftp://host:21")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDetectionsFromStruct(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]interface{}{
		"detections": []interface{}{
			map[string]interface{}{
				"x1": 10, "y1": 20, "x2": 110, "y2": 220,
				"confidence": 0.75, "class_label": "person",
			},
			map[string]interface{}{
				"x1": 1, "y1": 2, "x2": 3, "y2": 4,
				"confidence": 0.5, "class_label": "猫", "class_id": 15,
			},
		},
	})
	test.That(t, err, test.ShouldBeNil)

	dets, err := detectionsFromStruct(resp)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldHaveLength, 2)
	test.That(t, dets[0].BBox, test.ShouldResemble, models.BBox{X1: 10, Y1: 20, X2: 110, Y2: 220})
	test.That(t, dets[0].ClassLabel, test.ShouldEqual, "person")
	test.That(t, dets[0].Source, test.ShouldEqual, models.SourceLearned)
	test.That(t, dets[1].ClassLabel, test.ShouldEqual, "Class_15")

	dets, err = detectionsFromStruct(&structpb.Struct{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldBeEmpty)

	bad, _ := structpb.NewStruct(map[string]interface{}{"detections": []interface{}{"oops"}})
	_, err = detectionsFromStruct(bad)
	test.That(t, err, test.ShouldNotBeNil)
}
