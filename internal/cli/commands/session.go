package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yockey88/DotOther/internal/cli/ui"
	"github.com/yockey88/DotOther/internal/config"
	"github.com/yockey88/DotOther/internal/logging"
	"github.com/yockey88/DotOther/internal/refrt"
	"github.com/yockey88/DotOther/runtime/hosting"
	"github.com/yockey88/DotOther/runtime/interop"
)

// errReported marks a failure whose message was already written to the
// command's error stream.
var errReported = errors.New("see above")

// loadConfig reads the configuration with the persistent flags applied.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, *zap.Logger, error) {
	v := config.New()
	if flag := cmd.Flags().Lookup("log-level"); flag != nil {
		if err := v.BindPFlag("log.level", flag); err != nil {
			return nil, nil, err
		}
	}

	cfg, err := config.Read(v, opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	logOpts, err := cfg.LogOptions()
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(logOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

// session is one host bound to a fresh reference runtime with a single
// assembly load context.
type session struct {
	cmd     *cobra.Command
	cfg     *config.Config
	log     *zap.Logger
	noColor bool

	runtime    *refrt.Runtime
	host       *hosting.Host
	context    *hosting.AssemblyContext
	assemblies []*hosting.Assembly
}

func openSession(cmd *cobra.Command, opts *globalOptions) (*session, error) {
	cfg, log, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	rt := refrt.New(refrt.WithLogger(log))
	host := hosting.NewHost(rt.Table(), hosting.WithLogger(log))
	rt.Attach(host)

	actx, err := host.CreateAssemblyContext(cfg.Runtime.ContextName)
	if err != nil {
		return nil, err
	}

	return &session{
		cmd:     cmd,
		cfg:     cfg,
		log:     log,
		noColor: opts.noColor,
		runtime: rt,
		host:    host,
		context: actx,
	}, nil
}

// load loads every manifest in paths, or the configured assemblies when
// paths is empty.
func (s *session) load(paths []string) error {
	if len(paths) == 0 {
		paths = s.cfg.Runtime.Assemblies
	}
	if len(paths) == 0 {
		return errors.New("no assemblies given and none configured under runtime.assemblies")
	}

	for _, path := range paths {
		asm, err := s.context.LoadAssembly(path)
		if err == nil && asm.LoadStatus() != interop.LoadSuccess {
			err = &interop.LoadError{Path: path, Status: asm.LoadStatus()}
		}
		if err != nil {
			fmt.Fprint(s.cmd.ErrOrStderr(), ui.LoadError(path, err, s.noColor))
			return errReported
		}
		s.assemblies = append(s.assemblies, asm)
	}
	return nil
}

// lookup returns the cached type called name, writing a suggestion message
// on a miss.
func (s *session) lookup(name string) (*hosting.Type, error) {
	t := s.host.GetType(name)
	if t.Valid() {
		return t, nil
	}
	fmt.Fprint(s.cmd.ErrOrStderr(), ui.TypeNotFoundError(name, s.typeNames(), s.noColor))
	return nil, errReported
}

func (s *session) typeNames() []string {
	types := s.host.Types().Types()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.FullName())
	}
	sort.Strings(names)
	return names
}

func (s *session) Close() {
	_ = s.host.Close()
	_ = s.log.Sync()
}
