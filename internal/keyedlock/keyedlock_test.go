// Copyright 2025 Fluxpoint Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package keyedlock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	k := New()
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("camp-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestLockIndependentKeys(t *testing.T) {
	k := New()
	unlockA := k.Lock("camp-a")
	// A held lock on one key must not block another key
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("camp-b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestLockEntryCleanup(t *testing.T) {
	k := New()
	unlock := k.Lock("camp-1")
	unlock()
	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}

func TestLockReacquire(t *testing.T) {
	k := New()
	unlock := k.Lock("camp-1")
	unlock()
	unlock = k.Lock("camp-1")
	unlock()
}
