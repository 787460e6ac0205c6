package main

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/gradia-ml/gradia/autodiff"
	"github.com/gradia-ml/gradia/backend/cpu"
	"github.com/gradia-ml/gradia/hooks"
	"github.com/gradia-ml/gradia/optim"
	"github.com/gradia-ml/gradia/tensor"
)

func demoCmd() *cli.Command {
	var (
		offloadDir string
		useOffload bool
		useFloat16 bool
		epochs     int64
		samples    int64
		features   int64
		lr         float64
		seed       int64
	)

	return &cli.Command{
		Name:  "demo",
		Usage: "Train a tiny linear model, optionally with saved-tensor hooks",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "offload",
				Usage:       "spill tensors saved for backward to disk",
				Destination: &useOffload,
			},
			&cli.StringFlag{
				Name:        "offload-dir",
				Usage:       "directory for spill files (default: system temp)",
				Destination: &offloadDir,
			},
			&cli.BoolFlag{
				Name:        "float16",
				Usage:       "store tensors saved for backward in half precision",
				Destination: &useFloat16,
			},
			&cli.Int64Flag{
				Name:        "epochs",
				Value:       200,
				Usage:       "training epochs",
				Destination: &epochs,
			},
			&cli.Int64Flag{
				Name:        "samples",
				Value:       256,
				Usage:       "synthetic dataset size",
				Destination: &samples,
			},
			&cli.Int64Flag{
				Name:        "features",
				Value:       8,
				Usage:       "input feature count",
				Destination: &features,
			},
			&cli.Float64Flag{
				Name:        "lr",
				Value:       1e-3,
				Usage:       "learning rate",
				Destination: &lr,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Value:       42,
				Usage:       "RNG seed",
				Destination: &seed,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if useOffload && useFloat16 {
				return fmt.Errorf("only one pair of saved tensor hooks can be active; pick --offload or --float16")
			}

			backend := autodiff.New(cpu.New())

			var offloader *hooks.DiskOffloader
			switch {
			case useOffload:
				var err error
				offloader, err = hooks.NewDiskOffloader(offloadDir)
				if err != nil {
					return err
				}
				defer offloader.Cleanup() //nolint:errcheck // best-effort removal of spill files
				if err := backend.EnableSavedTensorHooks(offloader.Hooks()); err != nil {
					return err
				}
				fmt.Printf("offloading saved tensors to %s\n", offloader.Dir())
			case useFloat16:
				if err := backend.EnableSavedTensorHooks(hooks.Float16()); err != nil {
					return err
				}
				fmt.Println("storing saved tensors in float16")
			}

			return train(backend, int(epochs), int(samples), int(features), lr, seed, offloader)
		},
	}
}

// train fits w in y = X @ w to a synthetic dataset with plain SGD.
func train(backend *autodiff.Backend[*cpu.Backend], epochs, samples, features int, lr float64, seed int64, offloader *hooks.DiskOffloader) error {
	rng := rand.New(rand.NewSource(seed))

	x := tensor.Rand[float32](tensor.Shape{samples, features}, backend, rng)
	trueW := tensor.Rand[float32](tensor.Shape{features, 1}, backend, rng)
	y := x.MatMul(trueW) // targets generated before recording starts
	w := tensor.Zeros[float32](tensor.Shape{features, 1}, backend)

	sgd := optim.NewSGD([]*tensor.RawTensor{w.Raw()}, optim.SGDConfig{LR: float32(lr)})
	tape := backend.Tape()
	bar := progressbar.Default(int64(epochs), "training")

	var loss float32
	for epoch := 0; epoch < epochs; epoch++ {
		tape.Clear()
		tape.StartRecording()

		pred := x.MatMul(w)
		diff := pred.Sub(y)
		lossT := diff.Mul(diff).Sum()

		tape.StopRecording()

		grads, err := autodiff.Backward(lossT, backend)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}

		sgd.Step(grads)

		loss = lossT.Data()[0]
		_ = bar.Add(1)
	}

	fmt.Printf("final loss: %.6f\n", loss)
	if offloader != nil {
		fmt.Printf("offload stats: %s\n", offloader.Stats())
	}
	return nil
}
