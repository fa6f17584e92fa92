package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/streamcapture"
)

var camerasFormat string

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Inspect local capture devices",
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "List camera indices that open",
	Example: `  streamer cameras probe
  streamer cameras probe --max 10 --format json`,
	RunE: runProbe,
}

var testCmd = &cobra.Command{
	Use:   "test <index>",
	Short: "Open one camera and read a frame",
	Args:  cobra.ExactArgs(1),
	RunE:  runTest,
}

func init() {
	rootCmd.AddCommand(camerasCmd)
	camerasCmd.AddCommand(probeCmd, testCmd)

	camerasCmd.PersistentFlags().StringVarP(&camerasFormat, "format", "f", "table", "output format (table or json)")
	probeCmd.Flags().Int("max", -1, "highest index to try (default from PROBE_MAX_INDEX)")
}

func newCapture() (*streamcapture.Service, int) {
	cfg := loadConfig()
	return streamcapture.NewService(streamcapture.OptionsFromConfig(cfg), streamcapture.OpenCamera), cfg.ProbeMaxIndex
}

func runProbe(cmd *cobra.Command, args []string) error {
	capture, maxIndex := newCapture()
	if m, _ := cmd.Flags().GetInt("max"); m >= 0 {
		maxIndex = m
	}

	found := capture.ProbeDevices(cmd.Context(), maxIndex)
	if len(found) == 0 && camerasFormat != "json" {
		fmt.Println("No cameras found")
		return nil
	}
	return printCameras(found)
}

func runTest(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil || index < 0 {
		return fmt.Errorf("invalid camera index %q", args[0])
	}

	capture, _ := newCapture()
	info, err := capture.TestDevice(cmd.Context(), index)
	if err != nil {
		return fmt.Errorf("camera %d test failed: %w", index, err)
	}
	if err := printCameras([]models.CameraInfo{info}); err != nil {
		return err
	}
	if !info.CanRead {
		return fmt.Errorf("camera %d opened but returned no frame", index)
	}
	return nil
}

func printCameras(cams []models.CameraInfo) error {
	if camerasFormat == "json" {
		if cams == nil {
			cams = []models.CameraInfo{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cams)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tRESOLUTION\tFPS\tREADABLE")
	for _, c := range cams {
		fmt.Fprintf(w, "%d\t%s\t%d\t%t\n", c.Index, c.Resolution, c.FPS, c.CanRead)
	}
	return w.Flush()
}
