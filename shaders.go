package applier

import (
	_ "embed"
)

// shaderWGSL is the textured instanced-mesh shader: camera uniform at
// group 1, diffuse texture and sampler at group 0, per-instance model
// matrix at locations 5-8.
//
//go:embed shader.wgsl
var shaderWGSL string
