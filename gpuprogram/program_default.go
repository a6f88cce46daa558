//go:build !cuda && !opencl

package gpuprogram

// devices returns no devices when the module is built without a GPU
// backend, so ntt.Create/msm.Create fail fast instead of
// silently running on the CPU (spec §7). Grounded on
// other_examples/..._luxfi-ringtail__gpu-gpu_cgo.go.go's GPUAvailable()
// capability probe, generalized to an empty-set default rather than a
// boolean.
func devices() []Device { return nil }

func load(device Device, src Source) (Program, error) {
	return nil, newGpuToolsErr("gnark-gpu: built without a \"cuda\" or \"opencl\" build tag, no device program available")
}
