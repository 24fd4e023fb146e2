// main.go - Console client: inspect one image or read image paths interactively.

package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/bosocmputer/degradation_inspector/configs"
	"github.com/bosocmputer/degradation_inspector/internal/ai"
	"github.com/bosocmputer/degradation_inspector/internal/common"
	"github.com/bosocmputer/degradation_inspector/internal/ratelimit"
	"github.com/bosocmputer/degradation_inspector/internal/workflow"
)

const demoImagePath = "dataset/Rain100L/rainy/rain-001.png"

func main() {
	if err := mainImpl(); err != nil {
		log.Fatal(err)
	}
}

func mainImpl() error {
	imagePath := flag.String("image", "", "inspect a single image and exit")
	demo := flag.Bool("demo", false, "inspect "+demoImagePath+", generating a random image when it is missing")
	flag.Parse()

	configs.LoadConfig()
	configs.RequireProviderCredentials()

	// The model is loaded once and reused for every request
	loader, err := ai.CreateLoader()
	if err != nil {
		return err
	}
	ctx := context.Background()
	svc, err := ai.NewService(ctx, ai.OptionsFromConfig(), loader)
	if err != nil {
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	flow := workflow.New(svc, workflow.WithObserver(printStage))

	switch {
	case *demo:
		if err := ensureDemoImage(demoImagePath); err != nil {
			return err
		}
		return invoke(ctx, flow, demoImagePath)
	case *imagePath != "":
		return invoke(ctx, flow, *imagePath)
	}

	limiter := ratelimit.NewRateLimiter(configs.RATE_LIMIT_TOKENS, configs.RATE_LIMIT_REFILL)
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()
	fmt.Println("Enter an image path to inspect (Ctrl-D to quit).")
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or interrupt
			break
		}
		line = strings.Trim(strings.TrimSpace(line), `"'`)
		if line == "" {
			continue
		}
		// console requests wait for a token instead of being rejected
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := invoke(ctx, flow, line); err != nil {
			fmt.Println("❌", err)
		}
	}
	return nil
}

func invoke(ctx context.Context, flow *workflow.Workflow, imagePath string) error {
	reqCtx := common.NewRequestContext("console")
	ctx = common.WithRequestContext(ctx, reqCtx)

	fmt.Println("\n>>> [Request]", imagePath)
	state, err := flow.Invoke(ctx, workflow.Request{ImagePath: imagePath})
	if err != nil {
		reqCtx.GetPartialSummary()
		return err
	}
	reqCtx.GetSummary()

	fmt.Println("\n>>> [Response]")
	fmt.Println(state.FinalReport)
	return nil
}

func printStage(ctx context.Context, stage workflow.Stage, state *workflow.State, err error) {
	if err != nil {
		fmt.Printf("   [%s] failed: %v\n", stage, err)
		return
	}
	fmt.Printf("   [%s] ok\n", stage)
}

// ensureDemoImage writes a random 224x224 RGB image at path when nothing exists there
func ensureDemoImage(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	img := image.NewRGBA(image.Rect(0, 0, 224, 224))
	for y := 0; y < 224; y++ {
		for x := 0; x < 224; x++ {
			img.Set(x, y, color.RGBA{uint8(rand.Intn(256)), uint8(rand.Intn(256)), uint8(rand.Intn(256)), 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	log.Printf("🖼️  Generated random demo image at %s", path)
	return f.Close()
}
