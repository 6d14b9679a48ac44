package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rneureuther1/motion/internal/capture"
	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var devicePath string
	var palette int

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "List capture devices and their supported modes",
		Long: `Queries every video capture device (or a single one with --device) and ` +
			`prints the formats, frame sizes, and frame rates each supports.`,
		Run: func(_ *cobra.Command, _ []string) {
			devices, err := collectDevices(devicePath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "probe: %v\n", err)
				os.Exit(1)
			}
			if len(devices) == 0 {
				fmt.Println("No video capture devices found")
				return
			}
			for _, dev := range devices {
				printDevice(dev, palette)
			}
		},
	}

	cmd.Flags().StringVarP(&devicePath, "device", "d", "", "Probe a single device node (e.g. /dev/video0)")
	cmd.Flags().IntVarP(&palette, "palette", "p", -1, "Only report modes for this palette id")
	return cmd
}

func collectDevices(path string) ([]v4l2.DeviceInfo, error) {
	if path == "" {
		return v4l2.FindDevices()
	}

	dev, err := v4l2.OpenQuery(path)
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	caps, err := dev.QueryCapability()
	if err != nil {
		return nil, err
	}
	formats, err := dev.ListFormats()
	if err != nil {
		return nil, err
	}
	return []v4l2.DeviceInfo{{
		DevicePath: path,
		DeviceName: caps.Card,
		DriverName: caps.Driver,
		BusInfo:    caps.BusInfo,
		Formats:    formats,
	}}, nil
}

func printDevice(dev v4l2.DeviceInfo, palette int) {
	fmt.Printf("%s: %s (driver %s, bus %s)\n", dev.DevicePath, dev.DeviceName, dev.DriverName, dev.BusInfo)
	for _, format := range dev.Formats {
		id := capture.PaletteIndex(format.PixelFormat)
		if palette >= 0 && id != palette {
			continue
		}
		label := v4l2.FourCC(format.PixelFormat)
		if id >= 0 {
			label = fmt.Sprintf("%s (palette %d)", label, id)
		}
		fmt.Printf("  %-24s %s\n", label, format.Description)
		for _, size := range format.FrameSizes {
			rates := make([]string, 0, len(size.FrameRates))
			for _, rate := range size.FrameRates {
				rates = append(rates, fmt.Sprintf("%.4g", rate.FPS()))
			}
			line := fmt.Sprintf("    %dx%d", size.Width, size.Height)
			if len(rates) > 0 {
				line += " @ " + strings.Join(rates, ", ") + " fps"
			}
			fmt.Println(line)
		}
	}
}
