package config

const (
	defaultBind            = "127.0.0.1:3000"
	defaultBaseURL         = "http://localhost:3000"
	defaultSiteName        = "Worldwide FM"
	defaultCacheTTLSeconds = 60
	defaultCacheEntries    = 512
	defaultCosmicBaseURL   = "https://api.cosmicjs.com/v3"
	defaultCosmicMediaURL  = "https://workers.cosmicjs.com/v3"
	defaultMixcloudBaseURL = "https://api.mixcloud.com"
	defaultMixcloudUser    = "worldwidefm"
	defaultRadioCultURL    = "https://api.radiocult.fm"
	defaultTimezone        = "Europe/London"
	defaultScheduleDays    = 7
	defaultLegacyDriver    = "mysql"
	defaultLegacyPrefix    = "craft_"
	defaultMatchThreshold  = 0.6
	defaultSuccessPath     = "/membership?status=success"
	defaultCancelPath      = "/membership?status=cancelled"
	defaultDataDir         = "~/.local/share/wwfm"
	defaultLogDir          = "~/.local/share/wwfm/logs"
	defaultNtfyTimeout     = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:            defaultBind,
			BaseURL:         defaultBaseURL,
			SiteName:        defaultSiteName,
			CacheTTLSeconds: defaultCacheTTLSeconds,
			CacheEntries:    defaultCacheEntries,
		},
		Cosmic: Cosmic{
			BaseURL:  defaultCosmicBaseURL,
			MediaURL: defaultCosmicMediaURL,
		},
		Mixcloud: Mixcloud{
			Username: defaultMixcloudUser,
			BaseURL:  defaultMixcloudBaseURL,
		},
		RadioCult: RadioCult{
			BaseURL: defaultRadioCultURL,
		},
		Stripe: Stripe{
			SuccessPath: defaultSuccessPath,
			CancelPath:  defaultCancelPath,
		},
		Schedule: Schedule{
			Timezone: defaultTimezone,
			Days:     defaultScheduleDays,
		},
		Legacy: Legacy{
			Driver:         defaultLegacyDriver,
			TablePrefix:    defaultLegacyPrefix,
			MatchThreshold: defaultMatchThreshold,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
