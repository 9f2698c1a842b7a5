package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/born-ml/adv/autodiff"
	"github.com/born-ml/adv/drivers"
	"github.com/born-ml/adv/internal/testfunc"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// functions are the built-in functions addressable with --func.
var functions = map[string]autodiff.Function{
	"halfpipe":   testfunc.Halfpipe,
	"halfpipe_1": testfunc.Halfpipe1,
	"halfpipe_2": testfunc.Halfpipe2,
	"abs_plus":   testfunc.AbsPlus,
}

// chains are the built-in chains, differentiated with checkpointing.
var chains = map[string]func() *autodiff.Chain{
	"halfpipe_chain": testfunc.HalfpipeChain,
}

func names() string {
	var all []string
	for k := range functions {
		all = append(all, k)
	}
	for k := range chains {
		all = append(all, k)
	}
	sort.Strings(all)
	return strings.Join(all, ", ")
}

func lookup(name string) (autodiff.Function, error) {
	if f, ok := functions[name]; ok {
		return f, nil
	}
	if c, ok := chains[name]; ok {
		return c(), nil
	}
	return nil, fmt.Errorf("unknown function %q (known: %s)", name, names())
}

// packBits packs a string of '0'/'1' into bytes, first character in the
// least significant bit.
func packBits(s string) ([]byte, error) {
	out := make([]byte, (len(s)+7)/8)
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			out[i/8] |= 1 << (i % 8)
		default:
			return nil, fmt.Errorf("sign bits: invalid character %q at %d", c, i)
		}
	}
	return out, nil
}

func rows(m mat.Matrix) [][]float64 {
	if m == nil {
		return nil
	}
	if d, ok := m.(*mat.Dense); ok && d.IsEmpty() {
		return [][]float64{}
	}
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func vector(v *mat.VecDense) []float64 {
	if v == nil || v.IsEmpty() {
		return []float64{}
	}
	return mat.Col(nil, 0, v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "adv %s\n", version)
		},
	}
}

type jacobianResult struct {
	Function      string      `yaml:"function"`
	X             []float64   `yaml:"x"`
	Dx            []float64   `yaml:"dx"`
	Value         []float64   `yaml:"value"`
	Homogeneous   [][]float64 `yaml:"homogeneous"`
	Inhomogeneous []float64   `yaml:"inhomogeneous"`
	Multiplicity  int         `yaml:"multiplicity"`
}

func newJacobianCmd(a *app) *cobra.Command {
	var (
		name  string
		x, dx []float64
		signs string
	)
	cmd := &cobra.Command{
		Use:   "jacobian",
		Short: "Generalized Jacobian of a built-in function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := lookup(name)
			if err != nil {
				return err
			}
			if dx == nil {
				dx = make([]float64, len(x))
			}
			bits, err := packBits(signs)
			if err != nil {
				return err
			}
			par := drivers.WithParallel(a.cfg.Parallel.Pool())

			var jac *drivers.Jacobian
			if c, ok := f.(*autodiff.Chain); ok {
				jac, err = drivers.GeneralizedJacobianChain(c, x, dx, a.cfg.Checkpoints, par)
			} else {
				jac, err = drivers.GeneralizedJacobian(f, x, dx, bits, nil, par)
			}
			if err != nil {
				return err
			}

			return writeYAML(cmd.OutOrStdout(), jacobianResult{
				Function:      name,
				X:             x,
				Dx:            dx,
				Value:         autodiff.Eval(f, x),
				Homogeneous:   rows(jac.Homogeneous),
				Inhomogeneous: vector(jac.Inhomogeneous),
				Multiplicity:  jac.Multiplicity,
			})
		},
	}
	cmd.Flags().StringVarP(&name, "func", "f", "halfpipe", "function: "+names())
	cmd.Flags().Float64SliceVar(&x, "x", nil, "evaluation point")
	cmd.Flags().Float64SliceVar(&dx, "dx", nil, "direction (default zero)")
	cmd.Flags().StringVar(&signs, "signs", "", "signs for zero kinks as a bit string, e.g. 0110")
	_ = cmd.MarkFlagRequired("x")
	return cmd
}

type anfResult struct {
	Function string      `yaml:"function"`
	X        []float64   `yaml:"x"`
	Kinks    int         `yaml:"kinks"`
	A        []float64   `yaml:"a"`
	Z        [][]float64 `yaml:"Z"`
	L        [][]float64 `yaml:"L"`
	B        []float64   `yaml:"b"`
	J        [][]float64 `yaml:"J"`
	Y        [][]float64 `yaml:"Y"`
}

func newANFCmd(a *app) *cobra.Command {
	var (
		name string
		x    []float64
	)
	cmd := &cobra.Command{
		Use:   "anf",
		Short: "Abs-normal form of a built-in function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := lookup(name)
			if err != nil {
				return err
			}
			form, err := drivers.DenseForm(f, x, drivers.WithParallel(a.cfg.Parallel.Pool()))
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), anfResult{
				Function: name,
				X:        x,
				Kinks:    len(vector(form.A)),
				A:        vector(form.A),
				Z:        rows(form.Z),
				L:        rows(form.L),
				B:        vector(form.B),
				J:        rows(form.J),
				Y:        rows(form.Y),
			})
		},
	}
	cmd.Flags().StringVarP(&name, "func", "f", "halfpipe", "function: "+names())
	cmd.Flags().Float64SliceVar(&x, "x", nil, "evaluation point")
	_ = cmd.MarkFlagRequired("x")
	return cmd
}

type scheduleResult struct {
	Checkpoints int   `yaml:"checkpoints"`
	Steps       int   `yaml:"steps"`
	Schedule    []int `yaml:"schedule"`
}

func newScheduleCmd() *cobra.Command {
	var c, r int
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Binomial checkpoint schedule for a sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c < 0 || r < 0 {
				return fmt.Errorf("checkpoints and steps must be non-negative")
			}
			s := drivers.Schedule(c, r)
			if s == nil {
				s = []int{}
			}
			return writeYAML(cmd.OutOrStdout(), scheduleResult{Checkpoints: c, Steps: r, Schedule: s})
		},
	}
	cmd.Flags().IntVarP(&c, "checkpoints", "c", 3, "available checkpoints")
	cmd.Flags().IntVarP(&r, "steps", "r", 100, "sequence length")
	return cmd
}
