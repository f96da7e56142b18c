package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `<?xml version="1.0"?>
<nmaprun scanner="nmap">
  <host>
    <address addr="10.0.0.5" addrtype="ipv4"/>
    <address addr="fe80::1" addrtype="ipv6"/>
    <ports>
      <port protocol="tcp" portid="80">
        <state state="open"/>
        <service name="http" product="Apache httpd" version="2.2.34" extrainfo="Unix"/>
      </port>
      <port protocol="tcp" portid="443">
        <state state="closed"/>
        <service name="https"/>
      </port>
      <port protocol="tcp" portid="8080">
        <service name="http-proxy"/>
      </port>
    </ports>
  </host>
</nmaprun>`

func TestNormalizeOpenPortFilter(t *testing.T) {
	records, err := Normalize([]byte(sampleDocument))
	require.NoError(t, err)

	// Only the open port survives: closed and state-less ports fail closed.
	require.Len(t, records, 1)
	assert.Equal(t, "10.0.0.5", records[0].IP)
	assert.Equal(t, 80, records[0].Port)
	assert.Equal(t, "tcp", records[0].Protocol)
	assert.Equal(t, "Apache httpd", records[0].Product)
	assert.Equal(t, "2.2.34", records[0].Version)
}

func TestNormalizeBannerSynthesis(t *testing.T) {
	records, err := Normalize([]byte(sampleDocument))
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NotNil(t, records[0].Banner)
	assert.Equal(t, "http Apache httpd 2.2.34 (Unix)", *records[0].Banner)
}

func TestNormalizeBannerAbsentFields(t *testing.T) {
	doc := `<nmaprun><host>
		<address addr="10.0.0.9" addrtype="ipv4"/>
		<ports>
			<port protocol="tcp" portid="22"><state state="open"/><service/></port>
			<port protocol="udp" portid="53"><state state="open"/></port>
		</ports>
	</host></nmaprun>`

	records, err := Normalize([]byte(doc))
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Empty service element and missing service element both yield no
	// banner, not an empty string.
	assert.Nil(t, records[0].Banner)
	assert.Nil(t, records[1].Banner)
}

func TestNormalizeAddressSelection(t *testing.T) {
	t.Run("PrefersIPv4", func(t *testing.T) {
		doc := `<nmaprun><host>
			<address addr="00:11:22:33:44:55" addrtype="mac"/>
			<address addr="192.168.1.20" addrtype="ipv4"/>
			<ports><port protocol="tcp" portid="22"><state state="open"/></port></ports>
		</host></nmaprun>`
		records, err := Normalize([]byte(doc))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "192.168.1.20", records[0].IP)
	})

	t.Run("FallsBackToFirstAddress", func(t *testing.T) {
		doc := `<nmaprun><host>
			<address addr="fe80::2" addrtype="ipv6"/>
			<ports><port protocol="tcp" portid="22"><state state="open"/></port></ports>
		</host></nmaprun>`
		records, err := Normalize([]byte(doc))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "fe80::2", records[0].IP)
	})

	t.Run("DropsHostWithoutAddress", func(t *testing.T) {
		doc := `<nmaprun><host>
			<ports><port protocol="tcp" portid="22"><state state="open"/></port></ports>
		</host></nmaprun>`
		records, err := Normalize([]byte(doc))
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestNormalizeDropsMalformedRecords(t *testing.T) {
	doc := `<nmaprun><host>
		<address addr="10.0.0.7" addrtype="ipv4"/>
		<ports>
			<port protocol="tcp" portid="not-a-port"><state state="open"/></port>
			<port portid="81"><state state="open"/></port>
			<port protocol="tcp" portid="82"><state state="open"/></port>
		</ports>
	</host></nmaprun>`

	records, err := Normalize([]byte(doc))
	require.NoError(t, err)

	// Bad port and missing protocol are dropped without failing the rest.
	require.Len(t, records, 1)
	assert.Equal(t, 82, records[0].Port)
}

func TestNormalizeUnreadableDocument(t *testing.T) {
	_, err := Normalize([]byte("this is not xml at all <<<"))
	assert.Error(t, err)
}

func TestNormalizeDeterministic(t *testing.T) {
	first, err := Normalize([]byte(sampleDocument))
	require.NoError(t, err)
	second, err := Normalize([]byte(sampleDocument))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
