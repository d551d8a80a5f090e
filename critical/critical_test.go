// Copyright 2016 by Thorsten von Eicken

package critical

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectionExcludes(t *testing.T) {
	var s Section
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.Do(func() { counter++ })
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8000, counter)
}

func TestZeroGuardExit(t *testing.T) {
	assert.NotPanics(t, func() { Guard{}.Exit() })
}

func TestGuardReleasesOnEarlyReturn(t *testing.T) {
	var s Section
	f := func(early bool) int {
		defer s.Enter().Exit()
		if early {
			return 1
		}
		return 2
	}
	assert.Equal(t, 1, f(true))
	assert.Equal(t, 2, f(false))
}
