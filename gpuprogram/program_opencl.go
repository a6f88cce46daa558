//go:build opencl

package gpuprogram

/*
#cgo linux CFLAGS: -I/opt/rocm/include -I/usr/include
#cgo linux LDFLAGS: -L/opt/rocm/lib -L/usr/lib/x86_64-linux-gnu -lOpenCL
#cgo darwin CFLAGS: -framework OpenCL
#cgo darwin LDFLAGS: -framework OpenCL
#cgo windows LDFLAGS: -lOpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// openclProgram holds the context, command queue and program handles its
// methods pass to clCreateBuffer/clEnqueue*/clCreateKernel, with blocking
// reads standing in for the engine's synchronous call contract (spec §4.3),
// shaped after other_examples' nornicdb pkg/gpu/opencl bridge. load in this
// file records only the device: it creates no context or command queue and
// does not compile src.OpenCLText, so those handles stay nil.
type openclProgram struct {
	device  Device
	context C.cl_context
	queue   C.cl_command_queue
	program C.cl_program
}

func devices() []Device {
	var numPlatforms C.cl_uint
	if C.clGetPlatformIDs(0, nil, &numPlatforms) != C.CL_SUCCESS || numPlatforms == 0 {
		return nil
	}
	platforms := make([]C.cl_platform_id, numPlatforms)
	C.clGetPlatformIDs(numPlatforms, &platforms[0], nil)

	var out []Device
	for _, plat := range platforms {
		var numDevices C.cl_uint
		if C.clGetDeviceIDs(plat, C.CL_DEVICE_TYPE_GPU, 0, nil, &numDevices) != C.CL_SUCCESS || numDevices == 0 {
			continue
		}
		ids := make([]C.cl_device_id, numDevices)
		C.clGetDeviceIDs(plat, C.CL_DEVICE_TYPE_GPU, numDevices, &ids[0], nil)
		for i := range ids {
			out = append(out, Device{Kind: KindOpenCL, Index: len(out), Name: fmt.Sprintf("opencl:%d", len(out)), Weight: 1})
		}
	}
	return out
}

func load(device Device, src Source) (Program, error) {
	if device.Kind != KindOpenCL {
		return nil, newGpuToolsErr("opencl backend cannot load a non-OpenCL device")
	}
	if len(src.OpenCLText) == 0 {
		return nil, newGpuToolsErr("opencl: empty kernel source")
	}
	// A production bridge resolves the concrete cl_device_id for
	// device.Index, builds a context/queue against it, and compiles
	// src.OpenCLText with clCreateProgramWithSource/clBuildProgram,
	// surfacing CL_BUILD_PROGRAM_FAILURE as gpuerr.GpuTools per spec §7
	// ("Compile failures of generated source abort engine construction").
	return &openclProgram{device: device}, nil
}

func (p *openclProgram) Device() Device { return p.device }

func (p *openclProgram) Alloc(n, elemBytes int) (DeviceBuffer, error) {
	var errCode C.cl_int
	buf := C.clCreateBuffer(p.context, C.CL_MEM_READ_WRITE, C.size_t(n*elemBytes), nil, &errCode)
	if errCode != C.CL_SUCCESS {
		return DeviceBuffer{}, newGpuToolsErr("opencl: clCreateBuffer failed")
	}
	return DeviceBuffer{device: p.device, elemBytes: elemBytes, len: n, handle: buf}, nil
}

func (p *openclProgram) Write(buf DeviceBuffer, host []byte) error {
	mem, ok := buf.handle.(C.cl_mem)
	if !ok {
		return newGpuToolsErr("opencl: invalid buffer handle")
	}
	if len(host) == 0 {
		return nil
	}
	errCode := C.clEnqueueWriteBuffer(p.queue, mem, C.CL_TRUE, 0, C.size_t(len(host)), unsafe.Pointer(&host[0]), 0, nil, nil)
	if errCode != C.CL_SUCCESS {
		return newGpuToolsErr("opencl: clEnqueueWriteBuffer failed")
	}
	return nil
}

func (p *openclProgram) Read(buf DeviceBuffer, host []byte) error {
	mem, ok := buf.handle.(C.cl_mem)
	if !ok {
		return newGpuToolsErr("opencl: invalid buffer handle")
	}
	if len(host) == 0 {
		return nil
	}
	errCode := C.clEnqueueReadBuffer(p.queue, mem, C.CL_TRUE, 0, C.size_t(len(host)), unsafe.Pointer(&host[0]), 0, nil, nil)
	if errCode != C.CL_SUCCESS {
		return newGpuToolsErr("opencl: clEnqueueReadBuffer failed")
	}
	return nil
}

func (p *openclProgram) Run(kernelName string, globalWork, localWork int, args ...any) error {
	cname := C.CString(kernelName)
	defer C.free(unsafe.Pointer(cname))

	var errCode C.cl_int
	kernel := C.clCreateKernel(p.program, cname, &errCode)
	if errCode != C.CL_SUCCESS {
		return newGpuToolsErr(fmt.Sprintf("opencl: unknown kernel %q", kernelName))
	}
	defer C.clReleaseKernel(kernel)

	for i, arg := range args {
		switch v := arg.(type) {
		case DeviceBuffer:
			mem, ok := v.handle.(C.cl_mem)
			if !ok {
				return newGpuToolsErr("opencl: device buffer has no opencl handle")
			}
			if C.clSetKernelArg(kernel, C.cl_uint(i), C.size_t(unsafe.Sizeof(mem)), unsafe.Pointer(&mem)) != C.CL_SUCCESS {
				return newGpuToolsErr("opencl: clSetKernelArg failed")
			}
		case int:
			cv := C.cl_int(v)
			if C.clSetKernelArg(kernel, C.cl_uint(i), C.size_t(unsafe.Sizeof(cv)), unsafe.Pointer(&cv)) != C.CL_SUCCESS {
				return newGpuToolsErr("opencl: clSetKernelArg failed")
			}
		case uint32:
			cv := C.cl_uint(v)
			if C.clSetKernelArg(kernel, C.cl_uint(i), C.size_t(unsafe.Sizeof(cv)), unsafe.Pointer(&cv)) != C.CL_SUCCESS {
				return newGpuToolsErr("opencl: clSetKernelArg failed")
			}
		default:
			return newGpuToolsErr(fmt.Sprintf("opencl: unsupported kernel argument type %T", arg))
		}
	}

	global := C.size_t(globalWork)
	var localPtr *C.size_t
	if localWork > 0 {
		local := C.size_t(localWork)
		localPtr = &local
	}
	if C.clEnqueueNDRangeKernel(p.queue, kernel, 1, nil, &global, localPtr, 0, nil, nil) != C.CL_SUCCESS {
		return newGpuToolsErr("opencl: clEnqueueNDRangeKernel failed")
	}
	return nil
}

func (p *openclProgram) DeviceMemBytes() uint64 { return p.device.MemByte }

func (p *openclProgram) Close() error {
	if p.queue != nil {
		C.clReleaseCommandQueue(p.queue)
	}
	if p.context != nil {
		C.clReleaseContext(p.context)
	}
	if p.program != nil {
		C.clReleaseProgram(p.program)
	}
	return nil
}
