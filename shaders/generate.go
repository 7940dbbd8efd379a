// Package shaders holds the GLSL sources of the render systems. The compiled
// SPIR-V is loaded from this directory at run time.
package shaders

//go:generate glslc model.vert -o model.vert.spv
//go:generate glslc model.frag -o model.frag.spv
//go:generate glslc point_light.vert -o point_light.vert.spv
//go:generate glslc point_light.frag -o point_light.frag.spv
