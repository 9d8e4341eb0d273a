package gpu

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/gekko3d/airspace/viewrt/rt/shaders"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshInstance matches the WGSL instance attributes
type MeshInstance struct {
	ModelMat mgl32.Mat4
	Color    [4]float32
	Emissive [4]float32
	Params   [4]float32
}

// Globals matches the WGSL uniform struct
type Globals struct {
	ViewProj  mgl32.Mat4
	CameraPos [4]float32
	SunDir    [4]float32
	SunColor  [4]float32
	Ambient   [4]float32
	FogColor  [4]float32
	FogRange  [4]float32
}

// mgl32.Perspective produces GL depth in -1..1; WebGPU clips to 0..1.
var glToWebGPUDepth = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

type gpuMesh struct {
	vertexBuf  *wgpu.Buffer
	indexBuf   *wgpu.Buffer
	indexCount uint32
}

func (m *gpuMesh) release() {
	if m.vertexBuf != nil {
		m.vertexBuf.Release()
	}
	if m.indexBuf != nil {
		m.indexBuf.Release()
	}
}

type meshDraw struct {
	mesh        *gpuMesh
	doubleSided bool
}

// MeshRenderPass draws every frame item with one instance record each.
// There is no depth attachment; Frame.Build supplies painter's order.
type MeshRenderPass struct {
	Device         *wgpu.Device
	Layout         *wgpu.BindGroupLayout
	PipelineLayout *wgpu.PipelineLayout
	CullPipeline   *wgpu.RenderPipeline
	TwoSided       *wgpu.RenderPipeline
	GlobalsBuffer  *wgpu.Buffer
	BindGroup      *wgpu.BindGroup
	InstanceBuffer *wgpu.Buffer
	InstanceCap    uint32

	instances []MeshInstance
	draws     []meshDraw
}

// NewMeshRenderPass builds the pipelines. On error nothing it created is left alive.
func NewMeshRenderPass(device *wgpu.Device, format wgpu.TextureFormat) (*MeshRenderPass, error) {
	p := &MeshRenderPass{Device: device}
	if err := p.init(format); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *MeshRenderPass) init(format wgpu.TextureFormat) error {
	device := p.Device
	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "MeshShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.MeshWGSL},
	})
	if err != nil {
		return err
	}
	defer shaderModule.Release()

	globalsSize := uint64(unsafe.Sizeof(Globals{}))
	p.Layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "MeshGlobalsBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: globalsSize,
				},
			},
		},
	})
	if err != nil {
		return err
	}

	p.PipelineLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.Layout},
	})
	if err != nil {
		return err
	}

	p.CullPipeline, err = p.createPipeline(shaderModule, format, wgpu.CullModeBack, "MeshPipeline")
	if err != nil {
		return err
	}
	p.TwoSided, err = p.createPipeline(shaderModule, format, wgpu.CullModeNone, "MeshPipelineTwoSided")
	if err != nil {
		return err
	}

	p.GlobalsBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MeshGlobals",
		Size:  globalsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}

	p.BindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "MeshGlobalsBG",
		Layout: p.Layout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  p.GlobalsBuffer,
				Size:    globalsSize,
			},
		},
	})
	if err != nil {
		return err
	}
	return nil
}

func (p *MeshRenderPass) createPipeline(module *wgpu.ShaderModule, format wgpu.TextureFormat, cull wgpu.CullMode, label string) (*wgpu.RenderPipeline, error) {
	instanceAttrs := make([]wgpu.VertexAttribute, 0, 7)
	for i := 0; i < 7; i++ {
		instanceAttrs = append(instanceAttrs, wgpu.VertexAttribute{
			Format:         wgpu.VertexFormatFloat32x4,
			Offset:         uint64(i * 16),
			ShaderLocation: uint32(2 + i),
		})
	}

	return p.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label,
		Layout: p.PipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(core.Vertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
					},
				},
				{
					ArrayStride: uint64(unsafe.Sizeof(MeshInstance{})),
					StepMode:    wgpu.VertexStepModeInstance,
					Attributes:  instanceAttrs,
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cull,
		},
		DepthStencil: nil,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

func newGPUMesh(device *wgpu.Device, mesh *core.MeshData) (*gpuMesh, error) {
	m := &gpuMesh{indexCount: uint32(len(mesh.Indices))}
	var err error
	m.vertexBuf, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "MeshVertexBuffer",
		Contents: wgpu.ToBytes(mesh.Vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, err
	}
	indices := mesh.Indices
	// buffer sizes must be 4-byte aligned
	if len(indices)%2 != 0 {
		indices = append(indices[:len(indices):len(indices)], 0)
	}
	m.indexBuf, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "MeshIndexBuffer",
		Contents: wgpu.ToBytes(indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		m.release()
		return nil, err
	}
	return m, nil
}

// Update uploads the globals and the instance records for frame. Items whose
// geometry or material is not resident are skipped.
func (p *MeshRenderPass) Update(queue *wgpu.Queue, frame *Frame, meshes map[GeometryID]*gpuMesh, materials map[MaterialID]core.Material) error {
	sunDir := frame.Sun.Direction()
	ambient := frame.Ambient.Color
	globals := Globals{
		ViewProj:  glToWebGPUDepth.Mul4(frame.ViewProj),
		CameraPos: [4]float32{frame.CameraPos.X(), frame.CameraPos.Y(), frame.CameraPos.Z(), 1},
		SunDir:    [4]float32{sunDir.X(), sunDir.Y(), sunDir.Z(), frame.Sun.Intensity},
		SunColor:  [4]float32{frame.Sun.Color[0], frame.Sun.Color[1], frame.Sun.Color[2], 1},
		Ambient: [4]float32{
			ambient[0] * frame.Ambient.Intensity,
			ambient[1] * frame.Ambient.Intensity,
			ambient[2] * frame.Ambient.Intensity,
			1,
		},
		FogColor: [4]float32{frame.Fog.Color[0], frame.Fog.Color[1], frame.Fog.Color[2], 1},
		FogRange: [4]float32{frame.Fog.Near, frame.Fog.Far, 0, 0},
	}
	queue.WriteBuffer(p.GlobalsBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&globals)), unsafe.Sizeof(globals)))

	p.instances = p.instances[:0]
	p.draws = p.draws[:0]
	for _, it := range frame.Items {
		mesh, ok := meshes[it.Geometry]
		if !ok {
			continue
		}
		mat, ok := materials[it.Material]
		if !ok {
			continue
		}
		var unlit float32
		if mat.Unlit {
			unlit = 1
		}
		p.instances = append(p.instances, MeshInstance{
			ModelMat: it.Model,
			Color:    mat.Color(),
			Emissive: [4]float32{mat.Emissive[0], mat.Emissive[1], mat.Emissive[2], mat.EmissiveIntensity},
			Params:   [4]float32{unlit, 0, 0, 0},
		})
		p.draws = append(p.draws, meshDraw{mesh: mesh, doubleSided: mat.DoubleSided})
	}

	if len(p.instances) == 0 {
		return nil
	}

	count := uint32(len(p.instances))
	stride := uint64(unsafe.Sizeof(MeshInstance{}))
	if p.InstanceBuffer == nil || p.InstanceCap < count {
		if p.InstanceBuffer != nil {
			p.InstanceBuffer.Release()
			p.InstanceBuffer = nil
		}
		p.InstanceCap = count + 64
		buf, err := p.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "MeshInstanceBuffer",
			Size:  uint64(p.InstanceCap) * stride,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			p.InstanceCap = 0
			return err
		}
		p.InstanceBuffer = buf
	}
	queue.WriteBuffer(p.InstanceBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&p.instances[0])), uint64(count)*stride))
	return nil
}

func (p *MeshRenderPass) Draw(pass *wgpu.RenderPassEncoder) {
	if len(p.draws) == 0 || p.InstanceBuffer == nil {
		return
	}
	pass.SetBindGroup(0, p.BindGroup, nil)
	pass.SetVertexBuffer(1, p.InstanceBuffer, 0, wgpu.WholeSize)

	var current *wgpu.RenderPipeline
	for i, d := range p.draws {
		pipeline := p.CullPipeline
		if d.doubleSided {
			pipeline = p.TwoSided
		}
		if pipeline != current {
			pass.SetPipeline(pipeline)
			current = pipeline
		}
		pass.SetVertexBuffer(0, d.mesh.vertexBuf, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(d.mesh.indexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
		pass.DrawIndexed(d.mesh.indexCount, 1, 0, 0, uint32(i))
	}
}

func (p *MeshRenderPass) Release() {
	if p.InstanceBuffer != nil {
		p.InstanceBuffer.Release()
		p.InstanceBuffer = nil
	}
	if p.BindGroup != nil {
		p.BindGroup.Release()
		p.BindGroup = nil
	}
	if p.GlobalsBuffer != nil {
		p.GlobalsBuffer.Release()
		p.GlobalsBuffer = nil
	}
	if p.TwoSided != nil {
		p.TwoSided.Release()
		p.TwoSided = nil
	}
	if p.CullPipeline != nil {
		p.CullPipeline.Release()
		p.CullPipeline = nil
	}
	if p.PipelineLayout != nil {
		p.PipelineLayout.Release()
		p.PipelineLayout = nil
	}
	if p.Layout != nil {
		p.Layout.Release()
		p.Layout = nil
	}
}
