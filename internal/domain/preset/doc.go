// Package preset loads and launches prebuilt view definitions.
//
// Presets are YAML or TOML manifests gathered from a manifests directory at
// startup (plus a built-in default set). A manifest names the view's title,
// sandbox options, and document, either inline or in a sibling file.
// Launching a preset allocates a fresh live view from it.
package preset
