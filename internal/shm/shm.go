/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package shm contains platform-specific helpers for mapping the shared
// memory regions that back dataports.
package shm

import (
	"errors"
	"os"
	"strings"
)

// MapType identifies how a region's backing object was obtained.
type MapType uint8

const (
	// MapTypeDevShmFile backs the region with a file under /dev/shm
	// (or any ordinary file path).
	MapTypeDevShmFile MapType = iota
	// MapTypeMemFd backs the region with an anonymous memfd, whose fd is
	// passed to the peer out of band.
	MapTypeMemFd
)

var (
	// ErrPlatformUnsupported means the host OS has no shared memory support
	// wired in this package.
	ErrPlatformUnsupported = errors.New("shm: platform unsupported")

	// ErrNoSpaceOnDevShm means /dev/shm has not enough free space left for
	// the requested region.
	ErrNoSpaceOnDevShm = errors.New("shm: no space left on /dev/shm")

	// ErrRegionExists means a region file with the requested path already
	// exists and would be clobbered by Create.
	ErrRegionExists = errors.New("shm: region already exists")
)

// Region is a memory-mapped shared region. Mem aliases the mapping directly;
// both sides of the mapping observe stores into it.
type Region struct {
	Mem  []byte
	Path string
	Fd   int
	Typ  MapType

	// created marks the side that made the backing object and is therefore
	// responsible for unlinking it on Unmap.
	created bool
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func onDevShm(path string) bool {
	return strings.HasPrefix(path, "/dev/shm")
}
