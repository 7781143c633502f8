package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoir/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeConfig := func(data string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads all config fields", func() {
			writeConfig(`version = 0

[storage]
provider = "postgres"
postgres_dsn = "postgres://memoir@localhost/memoir"

[generation]
provider = "anthropic"
model = "claude-haiku-4-5-20251001"
timeout = "30s"
temperature = 0.3
requests_per_minute = 60
json_mode = true

[organize]
max_items_per_step = 10
medium_days = 14

[extraction]
workers = 4

[api]
listen = ":9091"

[client]
api_target = "http://myhost:9091"

[chat]
session_timeout = "10m"

[eventstream]
provider = "kafka"
brokers = ["kafka-1:9092", "kafka-2:9092"]
topic = "profile.events"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.Provider).To(Equal("postgres"))
			Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://memoir@localhost/memoir"))
			Expect(cfg.Generation.Provider).To(Equal("anthropic"))
			Expect(cfg.Generation.TimeoutDuration().Seconds()).To(Equal(30.0))
			Expect(cfg.Generation.Temperature).To(HaveValue(Equal(0.3)))
			Expect(cfg.Generation.RequestsPerMinute).To(Equal(uint(60)))
			Expect(cfg.Generation.JSONMode).To(BeTrue())
			Expect(cfg.Organize.MaxItemsPerStep).To(Equal(uint(10)))
			Expect(cfg.Organize.MediumDays).To(Equal(uint(14)))
			Expect(cfg.Organize.OldDays).To(Equal(uint(90)))
			Expect(cfg.Extraction.Workers).To(Equal(uint(4)))
			Expect(cfg.API.Listen).To(Equal(":9091"))
			Expect(cfg.Client.APITarget).To(Equal("http://myhost:9091"))
			Expect(cfg.Chat.SessionTimeout).To(Equal("10m"))
			Expect(cfg.EventStream.Brokers).To(Equal([]string{"kafka-1:9092", "kafka-2:9092"}))
			Expect(cfg.EventStream.Topic).To(Equal("profile.events"))
		})

		It("fills in defaults for unset fields in a partial config", func() {
			writeConfig("[generation]\nprovider = \"gemini\"\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Generation.Provider).To(Equal("gemini"))
			Expect(cfg.Generation.Timeout).To(Equal(defaults.Generation.Timeout))
			Expect(cfg.Storage.Provider).To(Equal(defaults.Storage.Provider))
			Expect(cfg.Organize).To(Equal(defaults.Organize))
			Expect(cfg.Chat).To(Equal(defaults.Chat))
		})

		It("returns error for malformed TOML", func() {
			writeConfig("[generation\nprovider = ")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})

		It("returns error for unsupported config version", func() {
			writeConfig("version = 7\n")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 7")))
		})

		It("rejects organize thresholds out of order", func() {
			writeConfig("[organize]\nmedium_days = 120\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("organize.medium_days (120) < organize.old_days (90)")))
		})

		It("rejects keys it does not know", func() {
			writeConfig("[generation]\nprovider = \"openai\"\nmodle = \"gpt-4o\"\n")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unknown config keys: generation.modle")))
		})
	})

	Describe("ExplicitKeys", func() {
		It("separates values in the file from defaults", func() {
			writeConfig("[organize]\nold_days = 60\n\n[eventstream]\nbrokers = [\"k:9092\"]\n")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			set, err := c.ExplicitKeys()
			Expect(err).NotTo(HaveOccurred())
			Expect(set).To(HaveLen(2))
			Expect(set).To(HaveKey("organize.old_days"))
			Expect(set).To(HaveKey("eventstream.brokers"))
		})

		It("is empty without a config file", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.ExplicitKeys()).To(BeEmpty())
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips a config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := config.PresetConfig("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("stores valid values",
			func(key, value string) {
				Expect(c.SetConfigValue(key, value)).To(Succeed())
				Expect(c.GetConfigValue(key)).To(Equal(value))
			},
			Entry("string", "generation.model", "qwen2.5:7b"),
			Entry("enum", "storage.provider", "memory"),
			Entry("duration", "chat.session_timeout", "5m0s"),
			Entry("uint", "organize.ancient_days", "400"),
			Entry("float", "generation.temperature", "0.7"),
			Entry("bool", "generation.json_mode", "true"),
			Entry("list", "eventstream.brokers", "a:9092,b:9092"),
		)

		DescribeTable("rejects invalid values",
			func(key, value string) {
				Expect(c.SetConfigValue(key, value)).To(MatchError(ContainSubstring(key)))
			},
			Entry("unknown provider", "generation.provider", "bedrock"),
			Entry("bad duration", "generation.timeout", "soon"),
			Entry("bad uint", "extraction.workers", "-1"),
			Entry("bad float", "generation.temperature", "warm"),
			Entry("zero threshold", "organize.ancient_days", "0"),
			Entry("threshold below the previous one", "organize.old_days", "10"),
			Entry("threshold above the next one", "organize.old_days", "365"),
		)

		It("leaves config.toml untouched when a threshold is rejected", func() {
			Expect(c.SetConfigValue("organize.ancient_days", "0")).NotTo(Succeed())
			Expect(c.GetConfigValue("organize.ancient_days")).To(Equal("365"))
		})

		It("rejects unknown keys", func() {
			Expect(c.SetConfigValue("generation.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("generation.upstream")
			Expect(err).To(HaveOccurred())
		})

		It("returns defaults when no config file exists", func() {
			Expect(c.GetConfigValue("organize.medium_days")).To(Equal("30"))
			Expect(c.GetConfigValue("generation.target")).To(BeEmpty())
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("api.listen", ":7000")).To(Succeed())
			Expect(c.SetConfigValue("client.api_target", "http://localhost:7000")).To(Succeed())
			Expect(c.GetConfigValue("api.listen")).To(Equal(":7000"))
		})
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("lists every key in section order", func() {
		keys := config.ValidConfigKeys()
		Expect(keys[0]).To(Equal("storage.provider"))
		Expect(keys).To(ContainElements("generation.requests_per_minute", "organize.old_days", "eventstream.topic"))
		for _, k := range keys {
			Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
		}
	})

	It("rejects keys outside the known sections", func() {
		Expect(config.IsValidConfigKey("generation")).To(BeFalse())
		Expect(config.IsValidConfigKey("organize.max_items")).To(BeFalse())
	})
})

var _ = Describe("PresetConfig", func() {
	It("is case-insensitive", func() {
		cfg, err := config.PresetConfig("Gemini")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Generation.Provider).To(Equal("gemini"))
	})

	It("keeps defaults outside the generation section", func() {
		cfg, err := config.PresetConfig("ollama")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Generation.Target).To(Equal("http://localhost:11434"))
		Expect(cfg.Organize).To(Equal(config.NewDefaultConfig().Organize))
	})

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("bedrock")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
		Expect(config.ValidPresetNames()).To(Equal([]string{"ollama", "openai", "anthropic", "gemini"}))
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(config.FromViper(v)).To(Equal(config.NewDefaultConfig()))
	})

	It("reads config file values over defaults", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[generation]\nmodel = \"gpt-4o\"\n"), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("generation.model")).To(Equal("gpt-4o"))
		Expect(v.GetString("generation.provider")).To(Equal("ollama"))
	})

	It("env vars take precedence over config file values", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[generation]\nprovider = \"anthropic\"\n"), 0o600)).To(Succeed())
		GinkgoT().Setenv("MEMOIR_GENERATION_PROVIDER", "openai")
		GinkgoT().Setenv("MEMOIR_EVENTSTREAM_BROKERS", "k1:9092,k2:9092")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Generation.Provider).To(Equal("openai"))
		Expect(cfg.EventStream.Brokers).To(Equal([]string{"k1:9092", "k2:9092"}))
	})

	It("refuses a zero threshold from the environment", func() {
		GinkgoT().Setenv("MEMOIR_ORGANIZE_ANCIENT_DAYS", "0")

		_, err := config.ForCommand(&cobra.Command{Use: "organize"}, tmpDir, nil)
		Expect(err).To(MatchError(ContainSubstring("organize.ancient_days")))
	})
})

var _ = Describe("BindRegisteredFlags", func() {
	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var provider string
		var workers uint
		config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &provider)
		config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &workers)

		Expect(cmd.Flags().Set("provider", "gemini")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagProvider, config.FlagWorkers, "nonexistent"})

		Expect(v.GetString("generation.provider")).To(Equal("gemini"))
		Expect(v.GetUint("extraction.workers")).To(Equal(uint(2)))
	})

	It("pulls name, shorthand, and default from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var target string
		config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &target)

		f := cmd.Flags().Lookup("api-target")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("a"))
		Expect(f.DefValue).To(Equal(config.NewDefaultConfig().Client.APITarget))
	})
})
