// Package camerarig derives the per-view cameras of a quilt render from one
// base camera.
//
// Every view looks at the same focal plane from a horizontally displaced
// position and compensates with a lens shift so the focal plane stays centred.
// ComputeViewPose is the single source of that geometry; Rig applies it either
// to one reusable temporary camera or to one camera per view (multiview).
package camerarig
