// Package config loads quill's configuration.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/quill/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. Apply QUILL_* overrides from a .env file in the working directory,
//     then from the process environment (which wins)
//
// # Default Values
//
//   - site_url: http://localhost/wp/wp_plugins
//   - api_path: /wp-json
//   - placeholder_url: <site_url>/wp-content/uploads/2025/10/no-image-icon-10.png
//   - state_path: ~/.local/state/quill/store.toml
//   - log_path: ~/.local/state/quill/quill.log
//   - max_image_width / max_image_height: 1920 / 1080 (0 disables resizing)
//   - date_locale: en_US
//
// # Credentials
//
// username and password are exchanged for a JWT at startup. Category and
// media lookups use HTTP basic auth with application_password when set,
// otherwise with password. Keep secrets in .env rather than the TOML file:
//
//	QUILL_USERNAME=admin
//	QUILL_PASSWORD=...
//	QUILL_APPLICATION_PASSWORD="abcd efgh ijkl mnop"
//
// # Example config.toml
//
//	site_url = "https://blog.example.com"
//	username = "editor"
//	max_image_width = 1600
//	date_locale = "de_DE"
//
// Parse errors are returned. Empty fields fall back to defaults.
package config
