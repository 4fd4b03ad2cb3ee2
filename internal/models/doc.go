// Package models defines the artifacts, manifests and records shared by the installer and launcher.
//
// The package contains three categories of types:
//
// 1. Artifacts: files that know where they live on disk
//   - [Artifact] : a downloadable file of a closed [Kind]; [MainPath] maps each kind to its storage root
//   - [Coordinate] : a Maven coordinate resolving to a library path and URL
//
// 2. Documents: JSON shapes read from Mojang, Forge and catalog endpoints
//   - [VersionManifest] : main class, arguments, libraries and asset index of a version
//   - [AssetIndex] : resource path to content hash mapping
//   - [Mod], [ModFile], [ModPack], [ModPackManifest] : catalog projects and files
//   - [InstanceSettings] : the persisted definition of a game instance
//
// 3. Persistent Entities: Database-backed records
//   - [Blob] : cache index entry of a downloaded file
//   - [Launch] : history entry of a spawned game process
//
// All persistent entities implement the Model interface providing IDs, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
