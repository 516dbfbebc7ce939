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

//go:build !linux

package shm

// CanCreateOnDevShm always passes on platforms without /dev/shm.
func CanCreateOnDevShm(size uint64, path string) bool {
	return true
}

func Create(path string, size int) (*Region, error) {
	return nil, ErrPlatformUnsupported
}

func CreateMemfd(name string, size int) (*Region, error) {
	return nil, ErrPlatformUnsupported
}

func Attach(path string) (*Region, error) {
	return nil, ErrPlatformUnsupported
}

func AttachMemfd(name string, fd int) (*Region, error) {
	return nil, ErrPlatformUnsupported
}

func (r *Region) Unmap() {}
