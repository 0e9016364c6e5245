package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_ClassifiesLines(t *testing.T) {
	text := "**1. Mô tả hình ảnh**\n" +
		"Phim chụp thẳng.\n" +
		"* Bóng tim bình thường\n" +
		"1. Chụp lại phim nghiêng\n" +
		"12. Theo dõi\n" +
		"\n" +
		"***Lưu ý: chỉ mang tính tham khảo***"

	blocks := Format(text)
	require.Len(t, blocks, 7)
	assert.Equal(t, Block{Kind: BlockHeading, Text: "1. Mô tả hình ảnh"}, blocks[0])
	assert.Equal(t, Block{Kind: BlockParagraph, Text: "Phim chụp thẳng."}, blocks[1])
	assert.Equal(t, Block{Kind: BlockBullet, Text: "Bóng tim bình thường"}, blocks[2])
	assert.Equal(t, Block{Kind: BlockOrdered, Number: "1", Text: "Chụp lại phim nghiêng"}, blocks[3])
	assert.Equal(t, Block{Kind: BlockOrdered, Number: "12", Text: "Theo dõi"}, blocks[4])
	assert.Equal(t, BlockBlank, blocks[5].Kind)
	assert.Equal(t, Block{Kind: BlockDivider, Text: "Lưu ý: chỉ mang tính tham khảo"}, blocks[6])
}

func TestFormat_NumberedDetectionIsUniform(t *testing.T) {
	for _, n := range []string{"1", "5", "6", "9", "10"} {
		blocks := Format(n + ". mục")
		require.Len(t, blocks, 1)
		assert.Equal(t, BlockOrdered, blocks[0].Kind, n)
	}
}

func TestFormat_NotBullet(t *testing.T) {
	blocks := Format("*nhấn mạnh*\n1.5 mg")
	assert.Equal(t, BlockParagraph, blocks[0].Kind)
	assert.Equal(t, BlockParagraph, blocks[1].Kind)
}

func TestRenderHTML_Escapes(t *testing.T) {
	out := RenderHTML(Format("**<b>x</b>**\n* a & b"))
	assert.Contains(t, out, "<h4><strong>&lt;b&gt;x&lt;/b&gt;</strong></h4>")
	assert.Contains(t, out, `<li class="bullet">a &amp; b</li>`)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}
