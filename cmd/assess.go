package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/solar-engine/internal/engine"
	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/internal/vision"
)

type assessOptions struct {
	imagePath    string
	address      model.Address
	propertyType string
	prompt       string
	consumption  float64
}

var assessOpts assessOptions

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run a full assessment for one address and roof photo",
	Example: `  solar-cli assess --image roof.jpg --street "123 Queen St" --city Charlottetown \
    --postal "C1A 4B3" --country Canada --type residential`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		return runAssess(ctx, cmd.OutOrStdout(), env.Engine, assessOpts)
	},
}

type assessor interface {
	Assess(ctx context.Context, req engine.Request) (*model.Assessment, error)
}

func runAssess(ctx context.Context, out io.Writer, eng assessor, opts assessOptions) error {
	pt, err := engine.ParsePropertyType(opts.propertyType)
	if err != nil {
		return err
	}
	img, err := readImage(opts.imagePath)
	if err != nil {
		return err
	}

	a, err := eng.Assess(ctx, engine.Request{
		Address:        opts.address,
		PropertyType:   pt,
		Image:          img,
		Prompt:         opts.prompt,
		ConsumptionKWh: opts.consumption,
	})
	if err != nil {
		return err
	}
	return printJSON(out, a)
}

var extMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
}

// readImage loads a roof photo, typing it by extension and falling back to
// content sniffing.
func readImage(path string) (vision.Image, error) {
	if path == "" {
		return vision.Image{}, eris.New("assess: --image is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return vision.Image{}, eris.Wrap(err, "assess: read image")
	}
	mt, ok := extMediaTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mt = http.DetectContentType(data)
	}
	return vision.Image{Data: data, MediaType: mt}, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}

func init() {
	f := assessCmd.Flags()
	f.StringVar(&assessOpts.imagePath, "image", "", "path to a roof photo (jpeg, png, webp, heic)")
	f.StringVar(&assessOpts.address.Street, "street", "", "street address")
	f.StringVar(&assessOpts.address.City, "city", "", "city")
	f.StringVar(&assessOpts.address.PostalCode, "postal", "", "postal code")
	f.StringVar(&assessOpts.address.Country, "country", "Canada", "country")
	f.StringVar(&assessOpts.propertyType, "type", "residential", "property type: residential, farm or business")
	f.StringVar(&assessOpts.prompt, "prompt", "", "extra context for the vision model")
	f.Float64Var(&assessOpts.consumption, "consumption", 0, "annual consumption in kWh (default from config)")
	_ = assessCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(assessCmd)
}
