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

//go:build linux

package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"

	"github.com/srediag/dataport/internal/logging"
)

// CanCreateOnDevShm reports whether size bytes still fit on /dev/shm.
// Paths outside /dev/shm are not checked and always pass.
func CanCreateOnDevShm(size uint64, path string) bool {
	if !onDevShm(path) {
		return true
	}
	stat, err := disk.Usage("/dev/shm")
	if err != nil {
		logging.Default().Warnf("shm: query /dev/shm usage failed: %s", err.Error())
		return true
	}
	return stat.Free >= size
}

// Create makes a new file-backed region of the given size and maps it
// read-write shared. The caller becomes the owner of the backing file.
func Create(path string, size int) (*Region, error) {
	_ = os.MkdirAll(filepath.Dir(path), os.ModePerm)
	if pathExists(path) {
		return nil, fmt.Errorf("%w: %s", ErrRegionExists, path)
	}
	if !CanCreateOnDevShm(uint64(size), path) {
		return nil, fmt.Errorf("%w: path %s size %d", ErrNoSpaceOnDevShm, path, size)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Default().Warnf("shm: file close error: %v", cerr)
		}
	}()

	if err := f.Truncate(int64(size)); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("shm: truncate region failed: %w", err)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	zero(mem)

	return &Region{
		Mem:     mem,
		Path:    path,
		Fd:      -1,
		Typ:     MapTypeDevShmFile,
		created: true,
	}, nil
}

// CreateMemfd makes an anonymous memfd-backed region. The returned Region's
// Fd is kept open so it can be passed to the consumer side.
func CreateMemfd(name string, size int) (*Region, error) {
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("shm: truncate memfd failed: %w", err)
	}
	mem, err := unix.Mmap(fd, 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	zero(mem)

	return &Region{
		Mem:     mem,
		Path:    name,
		Fd:      fd,
		Typ:     MapTypeMemFd,
		created: true,
	}, nil
}

// Attach maps an already-created file-backed region. The attaching side never
// initializes or unlinks the backing file.
func Attach(path string) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Default().Warnf("shm: file close error: %v", cerr)
		}
	}()

	fileInfo, err := f.Stat()
	if err != nil {
		return nil, err
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, int(fileInfo.Size()),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	return &Region{
		Mem:  mem,
		Path: path,
		Fd:   -1,
		Typ:  MapTypeDevShmFile,
	}, nil
}

// AttachMemfd maps a region from a memfd received from the creating side.
func AttachMemfd(name string, fd int) (*Region, error) {
	var fileInfo unix.Stat_t
	if err := unix.Fstat(fd, &fileInfo); err != nil {
		return nil, err
	}
	mem, err := unix.Mmap(fd, 0, int(fileInfo.Size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	return &Region{
		Mem:  mem,
		Path: name,
		Fd:   fd,
		Typ:  MapTypeMemFd,
	}, nil
}

// Unmap releases the mapping. The creating side of a file-backed region also
// removes the backing file; memfd regions close their fd instead.
func (r *Region) Unmap() {
	if err := unix.Munmap(r.Mem); err != nil {
		logging.Default().Warnf("shm: unmap region %s error: %s", r.Path, err.Error())
	}
	r.Mem = nil

	switch r.Typ {
	case MapTypeDevShmFile:
		if !r.created {
			return
		}
		if err := os.Remove(r.Path); err != nil {
			logging.Default().Warnf("shm: remove file %s failed, error=%s", r.Path, err.Error())
		} else {
			logging.Default().Infof("shm: removed region file %s", r.Path)
		}
	case MapTypeMemFd:
		if err := unix.Close(r.Fd); err != nil {
			logging.Default().Warnf("shm: close region fd %d, error:%s", r.Fd, err.Error())
		} else {
			logging.Default().Infof("shm: closed region fd %d", r.Fd)
		}
	}
}

func zero(mem []byte) {
	for i := 0; i < len(mem); i++ {
		mem[i] = 0
	}
}
