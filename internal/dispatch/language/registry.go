package language

import (
	"fmt"
	"sort"
)

var defaultEnv = []string{"LANG=en_US.UTF-8", "LANGUAGE=en_US:en", "LC_ALL=en_US.UTF-8"}

func seccomp(rule string) *string {
	return &rule
}

const (
	cCompileCommand   = "/usr/bin/gcc -DONLINE_JUDGE -O2 -w -fmax-errors=3 -std=c11 {src_path} -lm -o {exe_path}"
	cppCompileCommand = "/usr/bin/g++ -DONLINE_JUDGE -O2 -w -fmax-errors=3 -std=c++14 {src_path} -lm -o {exe_path}"
)

// Defaults returns the built-in languages.
func Defaults() []Language {
	return []Language{
		{
			Name:        "C",
			Description: "GCC 9.4",
			Config: Config{
				Compile: &CompileConfig{
					SrcName:        "main.c",
					ExeName:        "main",
					MaxCPUTime:     3000,
					MaxRealTime:    10000,
					MaxMemory:      256 << 20,
					CompileCommand: cCompileCommand,
				},
				Run: RunConfig{Command: "{exe_path}", SeccompRule: seccomp("c_cpp"), Env: defaultEnv},
			},
			SPJ: &SPJConfig{
				Compile: CompileConfig{
					SrcName:        "spj-{spj_version}.c",
					ExeName:        "spj-{spj_version}",
					MaxCPUTime:     3000,
					MaxRealTime:    10000,
					MaxMemory:      1 << 30,
					CompileCommand: cCompileCommand,
				},
				Config: RunConfig{
					ExeName:     "spj-{spj_version}",
					Command:     "{exe_path} {in_file_path} {user_out_file_path}",
					SeccompRule: seccomp("c_cpp"),
				},
			},
		},
		{
			Name:        "C++",
			Description: "G++ 9.4",
			Config: Config{
				Compile: &CompileConfig{
					SrcName:        "main.cpp",
					ExeName:        "main",
					MaxCPUTime:     3000,
					MaxRealTime:    10000,
					MaxMemory:      512 << 20,
					CompileCommand: cppCompileCommand,
				},
				Run: RunConfig{Command: "{exe_path}", SeccompRule: seccomp("c_cpp"), Env: defaultEnv},
			},
			SPJ: &SPJConfig{
				Compile: CompileConfig{
					SrcName:        "spj-{spj_version}.cpp",
					ExeName:        "spj-{spj_version}",
					MaxCPUTime:     3000,
					MaxRealTime:    10000,
					MaxMemory:      1 << 30,
					CompileCommand: cppCompileCommand,
				},
				Config: RunConfig{
					ExeName:     "spj-{spj_version}",
					Command:     "{exe_path} {in_file_path} {user_out_file_path}",
					SeccompRule: seccomp("c_cpp"),
				},
			},
		},
		{
			Name:        "Java",
			Description: "OpenJDK 11",
			Config: Config{
				Compile: &CompileConfig{
					SrcName:        "Main.java",
					ExeName:        "Main",
					MaxCPUTime:     3000,
					MaxRealTime:    5000,
					MaxMemory:      -1,
					CompileCommand: "/usr/bin/javac {src_path} -d {exe_dir} -encoding UTF8",
				},
				Run: RunConfig{
					Command:              "/usr/bin/java -cp {exe_dir} -XX:MaxRAM={max_memory}k -Djava.security.manager -Dfile.encoding=UTF-8 -Djava.security.policy==/etc/java_policy -Djava.awt.headless=true Main",
					Env:                  defaultEnv,
					MemoryLimitCheckOnly: 1,
				},
			},
		},
		{
			Name:        "Python2",
			Description: "Python 2.7",
			Config: Config{
				Compile: &CompileConfig{
					SrcName:        "solution.py",
					ExeName:        "solution.pyc",
					MaxCPUTime:     3000,
					MaxRealTime:    5000,
					MaxMemory:      128 << 20,
					CompileCommand: "/usr/bin/python -m py_compile {src_path}",
				},
				Run: RunConfig{Command: "/usr/bin/python {exe_path}", SeccompRule: seccomp("general"), Env: defaultEnv},
			},
		},
		{
			Name:        "Python3",
			Description: "Python 3.8",
			Config: Config{
				Compile: &CompileConfig{
					SrcName:        "solution.py",
					ExeName:        "__pycache__/solution.cpython-38.pyc",
					MaxCPUTime:     3000,
					MaxRealTime:    5000,
					MaxMemory:      128 << 20,
					CompileCommand: "/usr/bin/python3 -m py_compile {src_path}",
				},
				Run: RunConfig{
					Command:     "/usr/bin/python3 {exe_path}",
					SeccompRule: seccomp("general"),
					Env:         append(append([]string{}, defaultEnv...), "PYTHONIOENCODING=utf-8"),
				},
			},
		},
	}
}

// Registry resolves submission languages to judge configs. It is read-only after construction.
type Registry struct {
	languages map[string]Language
}

// NewRegistry builds a registry from the defaults; overrides replace defaults with the same name
// and add new languages otherwise.
func NewRegistry(overrides []Language) (*Registry, error) {
	r := &Registry{languages: make(map[string]Language)}
	for _, lang := range Defaults() {
		r.languages[lang.Name] = lang
	}
	for _, lang := range overrides {
		if lang.Name == "" {
			return nil, fmt.Errorf("language name is required")
		}
		if lang.Config.Run.Command == "" {
			return nil, fmt.Errorf("language %s: run command is required", lang.Name)
		}
		r.languages[lang.Name] = lang
	}
	return r, nil
}

// Lookup returns the language with the given name.
func (r *Registry) Lookup(name string) (Language, bool) {
	lang, ok := r.languages[name]
	return lang, ok
}

// LookupSPJ returns the special judge config for name, if the language supports one.
func (r *Registry) LookupSPJ(name string) (*SPJConfig, bool) {
	lang, ok := r.Lookup(name)
	if !ok || lang.SPJ == nil {
		return nil, false
	}
	return lang.SPJ, true
}

// Names lists registered languages in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.languages))
	for name := range r.languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
