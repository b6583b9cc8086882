package config

// ApplicationConfiguration contains settings of the tool itself rather than
// of the heap.
type ApplicationConfiguration struct {
	LogLevel    string       `yaml:"LogLevel"`
	LogEncoding string       `yaml:"LogEncoding"`
	LogPath     string       `yaml:"LogPath"`
	Prometheus  BasicService `yaml:"Prometheus"`
	Pprof       BasicService `yaml:"Pprof"`
}
