package main

import (
	"fmt"
	"image"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ayusman/depthlens/internal/frame"
	"github.com/ayusman/depthlens/internal/spatial"
	"github.com/ayusman/depthlens/internal/store"
)

var (
	calibratePairs  string
	calibrateName   string
	calibrateDryRun bool
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Estimate a color-to-depth offset from hand-picked pixel pairs",
	Long: `Estimate the registration offset from a TOML file of correspondences:

  [geometry]          # optional, defaults to the [source] sizes
  color_width = 640
  color_height = 480
  depth_width = 320
  depth_height = 240

  [[pairs]]
  color = [100, 100]
  depth = [40, 42]

and store it as a named calibration profile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, pairs, err := loadCorrespondences(calibratePairs, cfg.Geometry())
		if err != nil {
			return err
		}

		offset, err := spatial.EstimateOffset(pairs, g)
		if err != nil {
			return err
		}
		fmt.Printf("offset_x = %d\noffset_y = %d\n(%d pairs, %s)\n", offset.X, offset.Y, len(pairs), g)

		if calibrateDryRun {
			return nil
		}
		if calibrateName == "" {
			return errors.New("--name is required unless --dry-run is set")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p := &store.Profile{Name: calibrateName, Geometry: g, Offset: offset, Samples: len(pairs)}
		if err := st.Profiles().Create(p); err != nil {
			return err
		}
		logger.Infow("calibration profile saved", "id", p.ID, "name", p.Name)
		return nil
	},
}

func init() {
	calibrateCmd.Flags().StringVar(&calibratePairs, "pairs", "", "TOML file of color/depth pixel correspondences")
	calibrateCmd.Flags().StringVar(&calibrateName, "name", "", "profile name to store the result under")
	calibrateCmd.Flags().BoolVar(&calibrateDryRun, "dry-run", false, "print the estimate without storing it")
	_ = calibrateCmd.MarkFlagRequired("pairs")
	rootCmd.AddCommand(calibrateCmd)
}

type correspondenceFile struct {
	Geometry *frame.Geometry `toml:"geometry"`
	Pairs    []struct {
		Color [2]int `toml:"color"`
		Depth [2]int `toml:"depth"`
	} `toml:"pairs"`
}

// loadCorrespondences reads a correspondence file. fallback is used when the
// file names no geometry.
func loadCorrespondences(path string, fallback frame.Geometry) (frame.Geometry, []spatial.Correspondence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return frame.Geometry{}, nil, errors.Wrapf(err, "read pairs file %s", path)
	}

	var f correspondenceFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return frame.Geometry{}, nil, errors.Wrapf(err, "parse pairs file %s", path)
	}

	g := fallback
	if f.Geometry != nil {
		g = *f.Geometry
	}

	pairs := make([]spatial.Correspondence, len(f.Pairs))
	for i, p := range f.Pairs {
		pairs[i] = spatial.Correspondence{
			Color: image.Pt(p.Color[0], p.Color[1]),
			Depth: image.Pt(p.Depth[0], p.Depth[1]),
		}
	}
	return g, pairs, nil
}
