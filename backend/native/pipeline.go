// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package native

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/blit.wgsl
var blitShaderWGSL string

// blitParamsSize is the byte size of the BlitParams uniform (8 x u32).
const blitParamsSize = 32

// packBlitParams serializes BlitParams for upload to the uniform buffer.
// Field order matches the WGSL struct.
func packBlitParams(srcW, srcH, dstX, dstY, dstW, dstH, frameW, frameH uint32) []byte {
	buf := make([]byte, blitParamsSize)
	for i, v := range [8]uint32{srcW, srcH, dstX, dstY, dstW, dstH, frameW, frameH} {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// pixelSpan maps an NDC interval [lo, hi] within [-1, 1] to a pixel
// range [p0, p1) over extent pixels, clipped to the frame.
func pixelSpan(lo, hi float64, extent int) (p0, p1 int) {
	p0 = int((lo + 1) / 2 * float64(extent))
	p1 = int((hi+1)/2*float64(extent) + 0.5)
	if p0 < 0 {
		p0 = 0
	}
	if p1 > extent {
		p1 = extent
	}
	return p0, p1
}

// createPipeline compiles the blit shader and builds the bind group
// layout, pipeline layout, and compute pipeline.
func (d *Device) createPipeline() error {
	spirvBytes, err := naga.Compile(blitShaderWGSL)
	if err != nil {
		return fmt.Errorf("compile blit shader: %w", err)
	}
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	shader, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "fieldplot_blit_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	d.shader = shader

	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "fieldplot_blit_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	d.bindLayout = bindLayout

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "fieldplot_blit_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	d.pipeLayout = pipeLayout

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "fieldplot_blit_pipeline",
		Layout: d.pipeLayout,
		Compute: hal.ComputeState{
			Module:     d.shader,
			EntryPoint: "cs_blit",
		},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	d.pipeline = pipeline
	return nil
}

func (d *Device) destroyPipeline() {
	if d.device == nil {
		return
	}
	if d.pipeline != nil {
		d.device.DestroyComputePipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
	if d.shader != nil {
		d.device.DestroyShaderModule(d.shader)
		d.shader = nil
	}
}
