package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromString(t *testing.T) {
	typs := []Type{NoneT, BoolT, LongT, DictT, NotImplementedT, TypeT}
	for _, typ := range typs {
		actual, err := FromString(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, actual)
		require.True(t, typ.IsValid())
	}

	_, err := FromString("List")
	require.Error(t, err)
	require.False(t, InvalidT.IsValid())
	require.Equal(t, "INVALID", Type(0x42).String())
}
