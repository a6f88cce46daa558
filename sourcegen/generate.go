package sourcegen

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/bavard"
	"golang.org/x/crypto/blake2b"

	"github.com/consensys/gnark-gpu/gpuerr"
)

// Artifact is the result of a Generate call: the OpenCL text unit is always
// produced; CudaFatbinPath is only populated once an external CUDA
// toolchain bridge (out of scope, spec §1) has compiled it, and is left
// empty otherwise. ContentHash is the blake2b-256 digest of the OpenCL
// text; its first 8 bytes name the artifact file in the cache directory, so
// re-running Generate on an unchanged bundle re-renders the text but does
// not write that file again (spec §4.2 determinism).
type Artifact struct {
	OpenCLSource   []byte
	CudaFatbinPath string
	ContentHash    [32]byte
}

// EnvCudaFatbin and EnvOpenCLSource are the names of the two process-wide
// environment variables spec §6 names. Nothing in this module sets or reads
// them: Generate returns the source in an Artifact, and gpuprogram.Load
// takes it as a gpuprogram.Source argument.
const (
	EnvCudaFatbin   = "CUDA_KERNEL_ARTIFACT"
	EnvOpenCLSource = "OPENCL_KERNEL_SOURCE"
)

// Generate renders b's entries into one OpenCL text unit, in bundle order,
// and returns the resulting Artifact. Calling Generate twice on bundles
// built from the same sequence of Add* calls produces byte-identical
// OpenCLSource (spec §8).
func Generate(b *Builder, cacheDir string) (*Artifact, error) {
	if cacheDir == "" {
		var err error
		cacheDir, err = os.MkdirTemp("", "gnark-gpu-sourcegen-")
		if err != nil {
			return nil, gpuerr.WrapIo("creating cache dir", err)
		}
	} else if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, gpuerr.WrapIo("creating cache dir", err)
	}

	tmpFile := filepath.Join(cacheDir, fmt.Sprintf("bundle-%s.cl", randSuffix()))
	if err := renderBundle(b, tmpFile); err != nil {
		return nil, err
	}
	defer os.Remove(tmpFile)

	source, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, gpuerr.WrapIo("reading rendered source", err)
	}

	hash := blake2b.Sum256(source)
	finalPath := filepath.Join(cacheDir, hex.EncodeToString(hash[:8])+".cl")
	if _, err := os.Stat(finalPath); os.IsNotExist(err) {
		if err := os.WriteFile(finalPath, source, 0o644); err != nil {
			return nil, gpuerr.WrapIo("writing content-addressed artifact", err)
		}
	}

	return &Artifact{OpenCLSource: source, ContentHash: hash}, nil
}

func renderBundle(b *Builder, filePath string) error {
	bavardOpts := []func(*bavard.Bavard) error{
		bavard.Apache2("ConsenSys Software Inc.", 2020),
		bavard.GeneratedBy("gnark-gpu/sourcegen"),
	}

	type renderData struct {
		Identifier   string
		Limbs        int
		NumBits      int
		Kind         string
		ModulusLimbs []uint64
		CurveALimbs  []uint64
	}
	var data []renderData

	for _, e := range b.Entries() {
		data = append(data, renderData{
			Identifier:   e.Descriptor.Identifier,
			Limbs:        e.Descriptor.Limbs,
			NumBits:      e.Descriptor.NumBits,
			Kind:         e.Kind.String(),
			ModulusLimbs: limbsOf(e.Descriptor.Modulus, e.Descriptor.Limbs),
			CurveALimbs:  limbsOf(e.Descriptor.CurveA, e.Descriptor.Limbs),
		})
	}

	// bavard.Generate renders every template against a single data value;
	// the bundle may mix descriptors with different identifiers, so each
	// entry is rendered to its own file fragment and concatenated in
	// bundle order, preserving the determinism guarantee (same bundle,
	// same order, same bytes).
	f, err := os.Create(filePath)
	if err != nil {
		return gpuerr.WrapIo("creating render target", err)
	}
	defer f.Close()

	idx := 0
	for _, e := range b.Entries() {
		var entryTemplates []string
		switch e.Kind {
		case KindScalarNTT:
			entryTemplates = []string{FieldTemplate, NTTTemplate}
		case KindCurveNTT:
			entryTemplates = []string{FieldTemplate, CurveTemplate, NTTTemplate}
		case KindMSM:
			entryTemplates = []string{FieldTemplate, CurveTemplate, MSMTemplate}
		}
		fragPath := fmt.Sprintf("%s.%d.frag", filePath, idx)
		if err := bavard.Generate(fragPath, entryTemplates, data[idx], bavardOpts...); err != nil {
			return gpuerr.WrapGpuTools("bavard template render failed", err)
		}
		frag, err := os.ReadFile(fragPath)
		if err != nil {
			return gpuerr.WrapIo("reading rendered fragment", err)
		}
		os.Remove(fragPath)
		if _, err := f.Write(frag); err != nil {
			return gpuerr.WrapIo("writing rendered fragment", err)
		}
		idx++
	}
	return nil
}

// limbsOf renders v as limbs little-endian 64-bit limbs, the representation
// every generated kernel's modulus/curve-coefficient constants use. A nil v
// (a scalar-only descriptor has no CurveA) renders as all-zero limbs.
func limbsOf(v *big.Int, limbs int) []uint64 {
	out := make([]uint64, limbs)
	if v == nil {
		return out
	}
	buf := make([]byte, limbs*8)
	v.FillBytes(buf)
	for i := 0; i < limbs; i++ {
		off := len(buf) - (i+1)*8
		out[i] = binary.BigEndian.Uint64(buf[off : off+8])
	}
	return out
}

func randSuffix() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
