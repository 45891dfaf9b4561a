package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntaxError_Error(t *testing.T) {
	assert.Equal(t, "bad (line 4)", (&SyntaxError{Message: "bad", Line: 4}).Error())
	assert.Equal(t, "bad", (&SyntaxError{Message: "bad"}).Error())
}

func TestFunc(t *testing.T) {
	var o Oracle = Func(func(_ context.Context, text string) (*SyntaxError, error) {
		if text == "" {
			return &SyntaxError{Message: "empty"}, nil
		}
		return nil, nil
	})
	assert.Equal(t, "func", o.Name())
	se, err := o.Check(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, se)
	se, err = o.Check(context.Background(), "<?php")
	require.NoError(t, err)
	assert.Nil(t, se)
}
