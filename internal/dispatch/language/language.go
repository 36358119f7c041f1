// Package language holds the compile and run configurations sent to judge servers.
package language

// CompileConfig tells a judge server how to build a source file.
type CompileConfig struct {
	SrcName        string `json:"src_name" yaml:"srcName"`
	ExeName        string `json:"exe_name" yaml:"exeName"`
	MaxCPUTime     int64  `json:"max_cpu_time" yaml:"maxCpuTime"`
	MaxRealTime    int64  `json:"max_real_time" yaml:"maxRealTime"`
	MaxMemory      int64  `json:"max_memory" yaml:"maxMemory"`
	CompileCommand string `json:"compile_command" yaml:"compileCommand"`
}

// RunConfig tells a judge server how to execute a built program.
type RunConfig struct {
	ExeName              string   `json:"exe_name,omitempty" yaml:"exeName"`
	Command              string   `json:"command" yaml:"command"`
	SeccompRule          *string  `json:"seccomp_rule" yaml:"seccompRule"`
	Env                  []string `json:"env,omitempty" yaml:"env"`
	MemoryLimitCheckOnly int      `json:"memory_limit_check_only,omitempty" yaml:"memoryLimitCheckOnly"`
}

// Config is the language_config field of a judge request.
type Config struct {
	Compile *CompileConfig `json:"compile,omitempty" yaml:"compile"`
	Run     RunConfig      `json:"run" yaml:"run"`
}

// SPJConfig describes how a special judge written in this language is built and invoked.
type SPJConfig struct {
	Compile CompileConfig `json:"compile" yaml:"compile"`
	Config  RunConfig     `json:"config" yaml:"config"`
}

// Language is one entry of the registry.
type Language struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Config      Config     `json:"config" yaml:"config"`
	SPJ         *SPJConfig `json:"spj,omitempty" yaml:"spj"`
}
